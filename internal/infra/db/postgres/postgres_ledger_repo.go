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

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

const ledgerColumns = `id, user_id, points_change, balance_after, change_type, source_id, created_at`

func scanLedger(row pgx.Row) (*model.LedgerRecord, error) {
	rec := &model.LedgerRecord{}
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.PointsChange, &rec.BalanceAfter, &rec.ChangeType, &rec.SourceID, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

// Append only ever INSERTs. There is no UPDATE or DELETE on this table, which
// is what makes the balance reconstructable by replay.
func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, rec *model.LedgerRecord) error {
	const q = `
INSERT INTO ledger_records (` + ledgerColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	_, err := execSQL(ctx, r.pool, tx, q, rec.ID, rec.UserID, rec.PointsChange, rec.BalanceAfter, rec.ChangeType, rec.SourceID, rec.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// LatestForUpdate takes the user row lock inside a transaction, then reads the
// newest record. The lock target must be the user row, not the newest ledger
// record: a waiter blocked on the record's lock re-checks only the row it had
// already chosen once the winner commits and never sees the winner's freshly
// inserted record, so both appends would read the same stale balance. The user
// row also covers the very first append, which has no ledger row to lock.
// ULIDs sort by creation time, so ordering by id is ordering by time.
func (r *ledgerRepo) LatestForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.LedgerRecord, error) {
	if _, ok := tx.(pgx.Tx); ok {
		row, err := pickRow(ctx, r.pool, tx, `SELECT id FROM users WHERE id=$1 FOR UPDATE;`, userID)
		if err != nil {
			return nil, err
		}
		var id string
		if err := row.Scan(&id); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReadDatabaseRow
		}
		// A missing user row is not an error here; it surfaces on the
		// subsequent insert's foreign key.
	}

	const q = `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE user_id=$1 ORDER BY id DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanLedger(row)
}

func (r *ledgerRepo) CurrentBalance(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	const q = `SELECT COALESCE((SELECT balance_after FROM ledger_records WHERE user_id=$1 ORDER BY id DESC LIMIT 1), 0);`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := row.Scan(&balance); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return balance, nil
}

func (r *ledgerRepo) History(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.LedgerRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE user_id=$1 ORDER BY id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.LedgerRecord
	for rows.Next() {
		rec, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
