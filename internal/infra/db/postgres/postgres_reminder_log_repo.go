package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"design-market/internal/domain"
	"design-market/internal/domain/ports/repository"
)

var _ repository.ReminderLogRepository = (*reminderLogRepo)(nil)

type reminderLogRepo struct{ pool *pgxpool.Pool }

func NewReminderLogRepo(pool *pgxpool.Pool) repository.ReminderLogRepository {
	return &reminderLogRepo{pool: pool}
}

func (r *reminderLogRepo) Save(ctx context.Context, tx repository.Tx, userID, kind string, thresholdDays int, period string) error {
	const q = `
INSERT INTO reminder_log (id, user_id, kind, threshold_days, period)
VALUES ($1, $2, $3, $4, $5);`

	// Duplicate prevention is the UNIQUE constraint on
	// (user_id, kind, threshold_days, period); a conflict is a harmless race.
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), userID, kind, thresholdDays, period)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *reminderLogRepo) Exists(ctx context.Context, tx repository.Tx, userID, kind string, thresholdDays int, period string) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1 FROM reminder_log
    WHERE user_id=$1 AND kind=$2 AND threshold_days=$3 AND period=$4
);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, kind, thresholdDays, period)
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
