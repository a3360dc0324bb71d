// File: internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/adapter"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/logging"
	"design-market/internal/infra/metrics"
)

// Compile-time check
var _ CallbackUseCase = (*callbackUC)(nil)

// CallbackUseCase applies a verified payment notification exactly once.
//
// The whole pipeline runs inside one transaction. The dedup record is inserted
// FIRST: its unique constraint on (provider, transaction_id) is the
// serialization point, so of two near-simultaneous deliveries only one commits
// its side effects and the other sees the conflict and returns the idempotent
// success result. Order transition, VIP update and ledger append all ride the
// same commit, so a failure in any sub-step leaves the callback not-yet-processed
// and safe to retry.
type CallbackUseCase interface {
	// Process returns nil when the provider should be acked with success,
	// including idempotent replays. Anomalous rejects surface as
	// domain.ErrAmountMismatch / domain.ErrNotFound; anything else is transient
	// and must not be acked so the provider retries.
	Process(ctx context.Context, notice *model.PaymentNotice) error
}

// rollback sentinels, never returned to callers
var (
	errReplay         = errors.New("callback already processed")
	errOrphanCallback = errors.New("callback for unknown order")
	errAmountMismatch = errors.New("callback amount mismatch")
)

type callbackUC struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	callbacks repository.CallbackRepository
	anomalies repository.AnomalyRepository
	ledger    LedgerUseCase
	tm        repository.TransactionManager
	notifier  adapter.Notifier
	log       *zerolog.Logger
	now       func() time.Time
}

func NewCallbackUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	callbacks repository.CallbackRepository,
	anomalies repository.AnomalyRepository,
	ledger LedgerUseCase,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *callbackUC {
	l := logger.With().Str("component", "CallbackUC").Logger()
	return &callbackUC{
		orders: orders, products: products, users: users,
		callbacks: callbacks, anomalies: anomalies, ledger: ledger,
		tm: tm, notifier: notifier, log: &l, now: time.Now,
	}
}

func (u *callbackUC) Process(ctx context.Context, n *model.PaymentNotice) error {
	if n == nil || n.Provider == "" || n.OrderNo == "" || n.TransactionID == "" || n.Amount <= 0 {
		return domain.ErrInvalidArgument
	}
	log := u.log.With().Str("provider", n.Provider).Str("order_no", n.OrderNo).
		Str("txn_id", n.TransactionID).Logger()
	defer logging.TraceDuration(&log, "CallbackUC.Process")()

	var (
		paidOrder *model.Order
		replay    bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Dedup insert comes before everything else. A conflict means another
		// delivery of this notification already committed its effects.
		rec := &model.CallbackRecord{
			ID:            uuid.NewString(),
			Provider:      n.Provider,
			TransactionID: n.TransactionID,
			OrderNo:       n.OrderNo,
			Amount:        n.Amount,
			ReceivedAt:    u.now(),
		}
		if err := u.callbacks.Insert(ctx, tx, rec); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return errReplay
			}
			return err
		}

		o, err := u.orders.FindByOrderNo(ctx, tx, n.OrderNo)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errOrphanCallback
			}
			return err
		}

		switch o.Status {
		case model.OrderStatusPaid:
			if o.TransactionID == n.TransactionID {
				// The dedup check should have caught this; defensive second
				// check. Keep the fresh dedup row and answer as a replay.
				replay = true
				return nil
			}
			// Two distinct successful payments for one order. Never
			// auto-merged: flag for manual review, stop provider retries.
			u.saveAnomaly(ctx, tx, model.AnomalyDuplicatePayment, n,
				fmt.Sprintf("order already paid with transaction %s", o.TransactionID))
			replay = true
			return nil
		case model.OrderStatusCancelled, model.OrderStatusExpired, model.OrderStatusRefunded:
			// Money arrived for a dead order. Record it, stop retries.
			u.saveAnomaly(ctx, tx, model.AnomalyOrphanCallback, n,
				fmt.Sprintf("order in terminal state %s", o.Status))
			replay = true
			return nil
		}

		if o.Amount != n.Amount {
			return errAmountMismatch
		}

		paidAt := n.PaidAt
		if paidAt.IsZero() {
			paidAt = u.now()
		}
		ok, err := u.orders.MarkPaid(ctx, tx, n.OrderNo, n.TransactionID, paidAt)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race the row lock should have prevented. Treat as replay.
			replay = true
			return nil
		}
		o.Status = model.OrderStatusPaid
		o.TransactionID = n.TransactionID
		o.PaidAt = &paidAt

		if err := u.applyEffects(ctx, tx, o); err != nil {
			return err
		}
		paidOrder = o
		return nil
	})

	switch {
	case err == nil:
		if replay {
			metrics.IncCallback(n.Provider, "replay")
			log.Info().Msg("callback replay, no effects applied")
			return nil
		}
		metrics.IncCallback(n.Provider, "applied")
		metrics.AddRevenue(n.Amount)
		log.Info().Int64("amount", n.Amount).Msg("payment applied")
		u.notifyPaid(ctx, paidOrder)
		return nil
	case errors.Is(err, errReplay):
		metrics.IncCallback(n.Provider, "replay")
		log.Info().Msg("duplicate delivery, dedup record already present")
		return nil
	case errors.Is(err, errOrphanCallback):
		metrics.IncCallback(n.Provider, "orphan")
		u.recordAnomalyOwnTx(ctx, model.AnomalyOrphanCallback, n, "no order with this order_no")
		log.Warn().Msg("callback for unknown order")
		return domain.ErrNotFound
	case errors.Is(err, errAmountMismatch):
		metrics.IncCallback(n.Provider, "amount_mismatch")
		u.recordAnomalyOwnTx(ctx, model.AnomalyAmountMismatch, n,
			fmt.Sprintf("callback amount %d differs from order amount", n.Amount))
		log.Warn().Int64("amount", n.Amount).Msg("callback amount mismatch")
		return domain.ErrAmountMismatch
	default:
		metrics.IncCallback(n.Provider, "error")
		log.Error().Err(err).Msg("callback processing failed, provider will retry")
		return err
	}
}

// applyEffects runs the paid-transition side effects inside the pipeline's
// transaction. This is the only code path allowed to mutate VIP fields or
// append payment-driven ledger records.
func (u *callbackUC) applyEffects(ctx context.Context, tx repository.Tx, o *model.Order) error {
	product, err := u.products.FindByID(ctx, tx, o.ProductID)
	if err != nil {
		return err
	}

	switch o.OrderType {
	case model.OrderTypeVIP:
		user, err := u.users.FindByID(ctx, tx, o.UserID)
		if err != nil {
			return err
		}
		next := model.ComputeRenewal(user.VIP, model.RenewalPackage{
			DurationDays:   product.DurationDays,
			GrantsLifetime: product.GrantsLifetime,
			Level:          product.VIPLevel,
		}, u.now())
		if err := u.users.UpdateVIP(ctx, tx, o.UserID, next); err != nil {
			return err
		}
		metrics.IncVIPRenewal(product.GrantsLifetime)
	case model.OrderTypePoints:
		if _, err := u.ledger.Append(ctx, tx, o.UserID, product.Points, model.ChangeTypePurchase, o.OrderNo); err != nil {
			return err
		}
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// saveAnomaly writes an anomaly inside the pipeline's transaction. A failed
// write is logged, never propagated: anomalies are data, not control flow.
func (u *callbackUC) saveAnomaly(ctx context.Context, tx repository.Tx, kind model.AnomalyKind, n *model.PaymentNotice, detail string) {
	a := &model.Anomaly{
		ID:            uuid.NewString(),
		Kind:          kind,
		OrderNo:       n.OrderNo,
		Provider:      n.Provider,
		TransactionID: n.TransactionID,
		Detail:        detail,
		CreatedAt:     u.now(),
	}
	if err := u.anomalies.Save(ctx, tx, a); err != nil {
		u.log.Error().Err(err).Str("kind", string(kind)).Str("order_no", n.OrderNo).
			Msg("failed to record anomaly")
		return
	}
	metrics.IncAnomaly(string(kind))
}

// recordAnomalyOwnTx is used when the main transaction rolled back: the reject
// must still leave a trace. Guarded by Exists so provider retries of the same
// broken notification do not pile up duplicate anomaly rows.
func (u *callbackUC) recordAnomalyOwnTx(ctx context.Context, kind model.AnomalyKind, n *model.PaymentNotice, detail string) {
	exists, err := u.anomalies.Exists(ctx, repository.NoTX, kind, n.OrderNo)
	if err == nil && exists {
		return
	}
	u.saveAnomaly(ctx, repository.NoTX, kind, n, detail)
}

func (u *callbackUC) notifyPaid(ctx context.Context, o *model.Order) {
	if u.notifier == nil || o == nil {
		return
	}
	msg := fmt.Sprintf("Your order %s has been paid.", o.OrderNo)
	if err := u.notifier.Notify(ctx, o.UserID, msg); err != nil {
		u.log.Warn().Err(err).Str("user_id", o.UserID).Msg("payment notification failed")
	}
}
