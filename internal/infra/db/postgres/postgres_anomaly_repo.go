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

var _ repository.AnomalyRepository = (*anomalyRepo)(nil)

type anomalyRepo struct{ pool *pgxpool.Pool }

func NewAnomalyRepo(pool *pgxpool.Pool) *anomalyRepo {
	return &anomalyRepo{pool: pool}
}

const anomalyColumns = `id, kind, order_no, provider, transaction_id, detail, created_at, resolved_at`

func (r *anomalyRepo) Save(ctx context.Context, tx repository.Tx, a *model.Anomaly) error {
	const q = `
INSERT INTO anomalies (` + anomalyColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Kind, a.OrderNo, a.Provider, a.TransactionID, a.Detail, a.CreatedAt, a.ResolvedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *anomalyRepo) Exists(ctx context.Context, tx repository.Tx, kind model.AnomalyKind, orderNo string) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1 FROM anomalies
    WHERE kind=$1 AND order_no=$2 AND resolved_at IS NULL
);`
	row, err := pickRow(ctx, r.pool, tx, q, kind, orderNo)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *anomalyRepo) ListUnresolved(ctx context.Context, tx repository.Tx, limit int) ([]*model.Anomaly, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + anomalyColumns + ` FROM anomalies WHERE resolved_at IS NULL ORDER BY created_at ASC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Anomaly
	for rows.Next() {
		a := &model.Anomaly{}
		if err := rows.Scan(&a.ID, &a.Kind, &a.OrderNo, &a.Provider, &a.TransactionID, &a.Detail, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	return out, nil
}
