package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// TimeoutWorker periodically expires pending orders older than the payment
// timeout. The mutation is a conditional bulk UPDATE, so overlapping runs and
// concurrent instances are harmless, and a user cancel racing the sweep simply
// loses (or wins) on the status=pending precondition.
type TimeoutWorker struct {
	interval time.Duration
	timeout  time.Duration
	orders   repository.OrderRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewTimeoutWorker(interval, timeout time.Duration, orders repository.OrderRepository, logger *zerolog.Logger) *TimeoutWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	l := logger.With().Str("component", "TimeoutWorker").Logger()
	return &TimeoutWorker{interval: interval, timeout: timeout, orders: orders, log: &l, now: time.Now}
}

func (w *TimeoutWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("timeout", w.timeout).Msg("starting timeout worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping timeout worker")
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			start := time.Now()
			n, err := w.RunOnce(runCtx)
			cancel()
			metrics.ObserveJobRun("order_timeout", time.Since(start), err)
			if err != nil {
				w.log.Error().Err(err).Msg("timeout sweep failed")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("pending orders expired")
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many orders were expired.
// An order created at T becomes eligible at exactly T+timeout, not before.
func (w *TimeoutWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	cutoff := now.Add(-w.timeout)
	n, err := w.orders.ExpirePendingBefore(ctx, repository.NoTX, cutoff, "timeout", now)
	if err != nil {
		return 0, err
	}
	metrics.AddOrdersExpired(n)
	return n, nil
}
