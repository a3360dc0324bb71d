package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// Reconciler scans pending orders for committed callback records: a dedup row
// without the matching order transition means the payment's effects were lost.
// That state is flagged as an anomaly for manual repair, never fixed silently
// (the repair may involve money and needs a human decision).
type Reconciler struct {
	interval  time.Duration
	minAge    time.Duration
	orders    repository.OrderRepository
	callbacks repository.CallbackRepository
	anomalies repository.AnomalyRepository
	log       *zerolog.Logger
	now       func() time.Time
}

func NewReconciler(interval time.Duration, orders repository.OrderRepository, callbacks repository.CallbackRepository, anomalies repository.AnomalyRepository, logger *zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	l := logger.With().Str("component", "Reconciler").Logger()
	return &Reconciler{
		interval: interval,
		// Skip orders younger than a minute: their callback may simply still
		// be in flight.
		minAge:    time.Minute,
		orders:    orders,
		callbacks: callbacks,
		anomalies: anomalies,
		log:       &l,
		now:       time.Now,
	}
}

func (w *Reconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reconciler")
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			start := time.Now()
			n, err := w.RunOnce(runCtx)
			cancel()
			metrics.ObserveJobRun("reconcile", time.Since(start), err)
			if err != nil {
				w.log.Error().Err(err).Msg("reconcile sweep failed")
			}
			if n > 0 {
				w.log.Warn().Int("count", n).Msg("lost updates flagged for manual repair")
			}
		}
	}
}

// RunOnce returns how many new orphan-order anomalies were recorded.
func (w *Reconciler) RunOnce(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.minAge)
	pending, err := w.orders.ListPendingCreatedBefore(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, o := range pending {
		rec, err := w.callbacks.FindByOrderNo(ctx, repository.NoTX, o.OrderNo)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // no callback yet, nothing to reconcile
			}
			return flagged, err
		}

		exists, err := w.anomalies.Exists(ctx, repository.NoTX, model.AnomalyOrphanOrder, o.OrderNo)
		if err != nil {
			return flagged, err
		}
		if exists {
			continue
		}
		a := &model.Anomaly{
			ID:            uuid.NewString(),
			Kind:          model.AnomalyOrphanOrder,
			OrderNo:       o.OrderNo,
			Provider:      rec.Provider,
			TransactionID: rec.TransactionID,
			Detail:        fmt.Sprintf("callback %s committed at %s but order still pending", rec.ID, rec.ReceivedAt.Format(time.RFC3339)),
			CreatedAt:     w.now(),
		}
		if err := w.anomalies.Save(ctx, repository.NoTX, a); err != nil {
			w.log.Error().Err(err).Str("order_no", o.OrderNo).Msg("failed to record orphan order anomaly")
			continue
		}
		metrics.IncAnomaly(string(model.AnomalyOrphanOrder))
		w.log.Warn().Str("order_no", o.OrderNo).Str("txn_id", rec.TransactionID).
			Msg("orphan order: callback committed but order never transitioned")
		flagged++
	}
	return flagged, nil
}
