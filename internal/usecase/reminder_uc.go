// File: internal/usecase/reminder_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"design-market/internal/domain/ports/adapter"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

const (
	reminderKindExpiry  = "expiry"
	reminderKindWinback = "winback"
)

// ReminderUseCase sends VIP expiry reminders at configured day thresholds
// before expiry, plus win-back messages after expiry. Dedup is keyed by
// (user, kind, threshold, calendar date) in the database, so neither a second
// daily run nor a process restart re-notifies anyone.
type ReminderUseCase interface {
	RunOnce(ctx context.Context) (sent int, err error)
}

type reminderUC struct {
	users      repository.UserRepository
	log        repository.ReminderLogRepository
	notifier   adapter.Notifier
	thresholds []int // days before expiry, e.g. 7, 3, 1
	winback    []int // days after expiry, e.g. 7
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewReminderUseCase(users repository.UserRepository, rlog repository.ReminderLogRepository, notifier adapter.Notifier, thresholds, winback []int, logger *zerolog.Logger) *reminderUC {
	l := logger.With().Str("component", "ReminderUC").Logger()
	if len(thresholds) == 0 {
		thresholds = []int{7, 3, 1}
	}
	if len(winback) == 0 {
		winback = []int{7}
	}
	return &reminderUC{users: users, log: rlog, notifier: notifier,
		thresholds: thresholds, winback: winback, logger: &l, now: time.Now}
}

func (u *reminderUC) RunOnce(ctx context.Context) (int, error) {
	now := u.now()
	period := now.Format("2006-01-02")
	sent := 0

	for _, days := range u.thresholds {
		from := now.AddDate(0, 0, days)
		n, err := u.sweep(ctx, reminderKindExpiry, days, from, from.AddDate(0, 0, 1), period,
			fmt.Sprintf("Your VIP membership expires in %d day(s). Renew to keep your benefits.", days))
		sent += n
		if err != nil {
			return sent, err
		}
	}
	for _, days := range u.winback {
		to := now.AddDate(0, 0, -days)
		n, err := u.sweep(ctx, reminderKindWinback, days, to.AddDate(0, 0, -1), to, period,
			"Your VIP membership has ended. Come back and renew any time.")
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (u *reminderUC) sweep(ctx context.Context, kind string, days int, from, to time.Time, period, message string) (int, error) {
	users, err := u.users.ListExpiringBetween(ctx, repository.NoTX, from, to, 500)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, usr := range users {
		dup, err := u.log.Exists(ctx, repository.NoTX, usr.ID, kind, days, period)
		if err != nil {
			u.logger.Error().Err(err).Str("user_id", usr.ID).Msg("reminder dedup lookup failed")
			continue
		}
		if dup {
			continue
		}
		if err := u.notifier.Notify(ctx, usr.ID, message); err != nil {
			u.logger.Warn().Err(err).Str("user_id", usr.ID).Msg("reminder delivery failed")
			continue
		}
		// Save after a successful send; the unique constraint absorbs the race
		// when two instances sweep the same window.
		if err := u.log.Save(ctx, repository.NoTX, usr.ID, kind, days, period); err != nil {
			u.logger.Error().Err(err).Str("user_id", usr.ID).Msg("reminder log write failed")
		}
		metrics.IncReminder(kind)
		sent++
	}
	return sent, nil
}
