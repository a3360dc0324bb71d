package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

var _ repository.CallbackRepository = (*callbackRepo)(nil)

type callbackRepo struct{ pool *pgxpool.Pool }

func NewCallbackRepo(pool *pgxpool.Pool) *callbackRepo {
	return &callbackRepo{pool: pool}
}

const callbackColumns = `id, provider, transaction_id, order_no, amount, received_at`

// Insert relies on the UNIQUE (provider, transaction_id) constraint: a 23505
// becomes domain.ErrAlreadyExists, which the pipeline reads as "another
// delivery won". No SELECT-then-INSERT; the constraint is the check.
func (r *callbackRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.CallbackRecord) error {
	const q = `
INSERT INTO callback_records (` + callbackColumns + `)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, rec.ID, rec.Provider, rec.TransactionID, rec.OrderNo, rec.Amount, rec.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanCallback(row pgx.Row) (*model.CallbackRecord, error) {
	rec := &model.CallbackRecord{}
	if err := row.Scan(&rec.ID, &rec.Provider, &rec.TransactionID, &rec.OrderNo, &rec.Amount, &rec.ReceivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

func (r *callbackRepo) Find(ctx context.Context, tx repository.Tx, provider, transactionID string) (*model.CallbackRecord, error) {
	const q = `SELECT ` + callbackColumns + ` FROM callback_records WHERE provider=$1 AND transaction_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, provider, transactionID)
	if err != nil {
		return nil, err
	}
	return scanCallback(row)
}

func (r *callbackRepo) FindByOrderNo(ctx context.Context, tx repository.Tx, orderNo string) (*model.CallbackRecord, error) {
	const q = `SELECT ` + callbackColumns + ` FROM callback_records WHERE order_no=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderNo)
	if err != nil {
		return nil, err
	}
	return scanCallback(row)
}
