package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// VIPExpiryWorker downgrades users whose non-lifetime VIP has expired. Runs
// once a day at a fixed hour; downgrading is never done inline on read.
type VIPExpiryWorker struct {
	hour  int
	users repository.UserRepository
	log   *zerolog.Logger
	now   func() time.Time
}

func NewVIPExpiryWorker(hour int, users repository.UserRepository, logger *zerolog.Logger) *VIPExpiryWorker {
	l := logger.With().Str("component", "VIPExpiryWorker").Logger()
	return &VIPExpiryWorker{hour: hour, users: users, log: &l, now: time.Now}
}

func (w *VIPExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Int("hour", w.hour).Msg("starting vip expiry worker")
	for {
		wait := time.Until(nextDailyRun(w.now(), w.hour))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info().Msg("stopping vip expiry worker")
			return ctx.Err()
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			start := time.Now()
			n, err := w.RunOnce(runCtx)
			cancel()
			metrics.ObserveJobRun("vip_expiry", time.Since(start), err)
			if err != nil {
				w.log.Error().Err(err).Msg("vip expiry sweep failed")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired vips downgraded")
			}
		}
	}
}

// RunOnce downgrades in one conditional UPDATE; re-running is a no-op.
func (w *VIPExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	n, err := w.users.DowngradeExpired(ctx, repository.NoTX, w.now())
	if err != nil {
		return 0, err
	}
	metrics.AddVIPDowngraded(n)
	return n, nil
}
