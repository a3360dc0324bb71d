package repository

import (
	"context"

	"design-market/internal/domain/model"
)

type CallbackRepository interface {
	// Insert writes the dedup record. A UNIQUE violation on
	// (provider, transaction_id) is reported as domain.ErrAlreadyExists; the
	// caller treats that as "someone else already processed this notification".
	Insert(ctx context.Context, tx Tx, rec *model.CallbackRecord) error

	Find(ctx context.Context, tx Tx, provider, transactionID string) (*model.CallbackRecord, error)

	// FindByOrderNo supports the reconciliation sweep: a record here without a
	// paid order is a lost update.
	FindByOrderNo(ctx context.Context, tx Tx, orderNo string) (*model.CallbackRecord, error)
}
