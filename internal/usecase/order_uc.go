// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type OrderUseCase interface {
	// Create validates the product and persists a pending order priced from the
	// current product row.
	Create(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Order, error)
	// Get returns the order projection; callers only see their own orders.
	Get(ctx context.Context, orderNo, requestingUserID string) (*model.Order, error)
	// Cancel moves a pending order to cancelled. Cancelling an order that
	// already timed out or was cancelled is a no-op success; cancelling a paid
	// or refunded order is ErrInvalidState.
	Cancel(ctx context.Context, orderNo, requestingUserID, reason string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error)
	// Refund moves a paid order to refunded and, for points orders, appends a
	// compensating ledger record inside the same transaction.
	Refund(ctx context.Context, orderNo, reason string) error
}

type orderUC struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	ledger   LedgerUseCase
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewOrderUseCase(orders repository.OrderRepository, products repository.ProductRepository, ledger LedgerUseCase, tm repository.TransactionManager, logger *zerolog.Logger) *orderUC {
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{orders: orders, products: products, ledger: ledger, tm: tm, log: &l, now: time.Now}
}

func (u *orderUC) Create(ctx context.Context, userID, productID string, method model.PaymentMethod) (*model.Order, error) {
	product, err := u.products.FindByID(ctx, repository.NoTX, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductInactive
	}

	o, err := model.NewOrder(uuid.NewString(), userID, product, method, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.orders.Save(ctx, repository.NoTX, o); err != nil {
		return nil, err
	}
	metrics.IncOrderCreated(string(o.OrderType), string(method))
	u.log.Info().Str("order_no", o.OrderNo).Str("user_id", userID).
		Str("product_id", productID).Int64("amount", o.Amount).Msg("order created")
	return o, nil
}

func (u *orderUC) Get(ctx context.Context, orderNo, requestingUserID string) (*model.Order, error) {
	o, err := u.orders.FindByOrderNo(ctx, repository.NoTX, orderNo)
	if err != nil {
		return nil, err
	}
	if o.UserID != requestingUserID {
		return nil, domain.ErrUnauthorized
	}
	return o, nil
}

func (u *orderUC) Cancel(ctx context.Context, orderNo, requestingUserID, reason string) error {
	o, err := u.orders.FindByOrderNo(ctx, repository.NoTX, orderNo)
	if err != nil {
		return err
	}
	if o.UserID != requestingUserID {
		return domain.ErrUnauthorized
	}
	replay, err := o.CanCancel()
	if err != nil {
		return err
	}
	if replay {
		return nil
	}

	ok, err := u.orders.MarkCancelled(ctx, repository.NoTX, orderNo, model.OrderStatusCancelled, reason, u.now())
	if err != nil {
		return err
	}
	if !ok {
		// Raced with the timeout sweep or another cancel. Whoever committed
		// first wins; if the order ended up in a cancel-equivalent terminal
		// this request succeeded too.
		cur, err := u.orders.FindByOrderNo(ctx, repository.NoTX, orderNo)
		if err != nil {
			return err
		}
		if cur.Status == model.OrderStatusCancelled || cur.Status == model.OrderStatusExpired {
			return nil
		}
		return domain.ErrInvalidState
	}
	metrics.IncOrderCancelled("user")
	u.log.Info().Str("order_no", orderNo).Str("reason", reason).Msg("order cancelled")
	return nil
}

func (u *orderUC) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
	return u.orders.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (u *orderUC) Refund(ctx context.Context, orderNo, reason string) error {
	o, err := u.orders.FindByOrderNo(ctx, repository.NoTX, orderNo)
	if err != nil {
		return err
	}
	if o.Status != model.OrderStatusPaid {
		return domain.ErrInvalidState
	}
	product, err := u.products.FindByID(ctx, repository.NoTX, o.ProductID)
	if err != nil {
		return err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.orders.MarkRefunded(ctx, tx, orderNo, reason, u.now())
		if err != nil {
			return err
		}
		if !ok {
			// Already refunded by a concurrent admin action.
			return domain.ErrInvalidState
		}
		if o.OrderType == model.OrderTypePoints {
			if _, err := u.ledger.Append(ctx, tx, o.UserID, -product.Points, model.ChangeTypeRefund, o.OrderNo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.IncOrderRefunded()
	u.log.Info().Str("order_no", orderNo).Str("reason", reason).Msg("order refunded")
	return nil
}
