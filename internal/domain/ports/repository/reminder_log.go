package repository

import "context"

// ReminderLogRepository deduplicates expiry reminders. The key includes the
// calendar date of the sweep run, so dedup is by date rather than by in-memory
// flag and survives process restarts.
type ReminderLogRepository interface {
	// Save records that a reminder was sent. Duplicate prevention is left to
	// the database's UNIQUE constraint on (user_id, kind, threshold_days, period).
	Save(ctx context.Context, tx Tx, userID, kind string, thresholdDays int, period string) error
	Exists(ctx context.Context, tx Tx, userID, kind string, thresholdDays int, period string) (bool, error)
}
