package repository

import (
	"context"
	"time"

	"design-market/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByOrderNo(ctx context.Context, tx Tx, orderNo string) (*model.Order, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Order, error)

	// MarkPaid transitions pending -> paid, stamping the transaction id and paid
	// time, only when the row is still pending. Returns false when no row
	// matched, meaning another writer got there first.
	MarkPaid(ctx context.Context, tx Tx, orderNo, transactionID string, paidAt time.Time) (bool, error)

	// MarkCancelled transitions pending -> cancelled (or expired, per status)
	// conditionally on the row still being pending. Returns false on no match.
	MarkCancelled(ctx context.Context, tx Tx, orderNo string, status model.OrderStatus, reason string, at time.Time) (bool, error)

	// MarkRefunded transitions paid -> refunded conditionally. Returns false on no match.
	MarkRefunded(ctx context.Context, tx Tx, orderNo, reason string, at time.Time) (bool, error)

	// ExpirePendingBefore bulk-expires pending orders created before the cutoff
	// and returns how many rows changed. The WHERE status='pending' guard makes
	// the sweep idempotent and safe to run from several instances at once.
	ExpirePendingBefore(ctx context.Context, tx Tx, cutoff time.Time, reason string, at time.Time) (int, error)

	// ListPendingCreatedBefore supports the reconciliation sweep.
	ListPendingCreatedBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Order, error)
}
