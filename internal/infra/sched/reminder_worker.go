package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"design-market/internal/infra/metrics"
	"design-market/internal/usecase"
)

// ReminderWorker runs the expiry reminder sweep once a day at a fixed hour.
// Dedup lives in the reminder log (by calendar date), not here, so restarts
// and overlapping instances cannot double-notify.
type ReminderWorker struct {
	hour      int
	reminders usecase.ReminderUseCase
	log       *zerolog.Logger
	now       func() time.Time
}

func NewReminderWorker(hour int, reminders usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderWorker {
	l := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{hour: hour, reminders: reminders, log: &l, now: time.Now}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Int("hour", w.hour).Msg("starting reminder worker")
	for {
		wait := time.Until(nextDailyRun(w.now(), w.hour))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info().Msg("stopping reminder worker")
			return ctx.Err()
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			start := time.Now()
			sent, err := w.reminders.RunOnce(runCtx)
			cancel()
			metrics.ObserveJobRun("vip_reminder", time.Since(start), err)
			if err != nil {
				w.log.Error().Err(err).Msg("reminder sweep failed")
			}
			if sent > 0 {
				w.log.Info().Int("sent", sent).Msg("expiry reminders sent")
			}
		}
	}
}
