package repository

import (
	"context"

	"design-market/internal/domain/model"
)

type LedgerRepository interface {
	// Append writes a new record with BalanceAfter already computed by the
	// caller and must run inside the caller's transaction when invoked from the
	// callback pipeline. The user-level lock taken by LatestForUpdate prevents
	// two concurrent appends from reading the same balance.
	Append(ctx context.Context, tx Tx, rec *model.LedgerRecord) error

	// LatestForUpdate returns the most recent record for the user. Inside a
	// transaction it first takes a lock scoped to the user (held until commit),
	// serializing concurrent appends for that user — including the first
	// append, when no record exists yet. Returns domain.ErrNotFound when the
	// user has no records.
	LatestForUpdate(ctx context.Context, tx Tx, userID string) (*model.LedgerRecord, error)

	// CurrentBalance is the BalanceAfter of the latest record, or 0.
	CurrentBalance(ctx context.Context, tx Tx, userID string) (int64, error)

	History(ctx context.Context, tx Tx, userID string, limit int) ([]*model.LedgerRecord, error)
}
