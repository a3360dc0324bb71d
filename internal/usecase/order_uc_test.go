package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

type orderFixture struct {
	now      time.Time
	orders   *memOrderRepo
	products *memProductRepo
	ledger   *memLedgerRepo
	uc       *orderUC
}

func newOrderFixture(t *testing.T, products ...*model.Product) *orderFixture {
	t.Helper()
	f := &orderFixture{
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		orders:   newMemOrderRepo(),
		products: newMemProductRepo(products...),
		ledger:   newMemLedgerRepo(),
	}
	tm := newMemTxManager(f.orders, f.ledger)
	logger := zerolog.Nop()

	ledgerUC := NewLedgerUseCase(f.ledger, tm, &logger)
	ledgerUC.now = func() time.Time { return f.now }

	f.uc = NewOrderUseCase(f.orders, f.products, ledgerUC, tm, &logger)
	f.uc.now = func() time.Time { return f.now }
	return f
}

func TestOrderCreate(t *testing.T) {
	t.Run("prices from stored product", func(t *testing.T) {
		f := newOrderFixture(t, vipProduct())

		o, err := f.uc.Create(context.Background(), "user-1", "vip-month", model.PaymentMethodWeChat)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.Amount != 2500 {
			t.Errorf("price must come from the product row, got %d", o.Amount)
		}
		if o.Status != model.OrderStatusPending {
			t.Errorf("expected pending, got %s", o.Status)
		}
		stored, err := f.orders.FindByOrderNo(context.Background(), repository.NoTX, o.OrderNo)
		if err != nil {
			t.Fatalf("order not persisted: %v", err)
		}
		if stored.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", stored.UserID)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newOrderFixture(t)
		if _, err := f.uc.Create(context.Background(), "user-1", "nope", model.PaymentMethodWeChat); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("inactive product", func(t *testing.T) {
		p := vipProduct()
		p.Active = false
		f := newOrderFixture(t, p)
		if _, err := f.uc.Create(context.Background(), "user-1", p.ID, model.PaymentMethodWeChat); !errors.Is(err, domain.ErrProductInactive) {
			t.Errorf("expected ErrProductInactive, got %v", err)
		}
	})
}

func TestOrderGet(t *testing.T) {
	f := newOrderFixture(t, vipProduct())
	ctx := context.Background()
	o, err := f.uc.Create(ctx, "user-1", "vip-month", model.PaymentMethodWeChat)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.uc.Get(ctx, o.OrderNo, "user-1"); err != nil {
		t.Errorf("owner must see own order: %v", err)
	}
	if _, err := f.uc.Get(ctx, o.OrderNo, "user-2"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for other user, got %v", err)
	}
}

func TestOrderCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order cancels", func(t *testing.T) {
		f := newOrderFixture(t, vipProduct())
		o, _ := f.uc.Create(ctx, "user-1", "vip-month", model.PaymentMethodWeChat)

		if err := f.uc.Cancel(ctx, o.OrderNo, "user-1", "changed my mind"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := f.orders.FindByOrderNo(ctx, repository.NoTX, o.OrderNo)
		if got.Status != model.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %s", got.Status)
		}
	})

	t.Run("repeat cancel is a no-op success", func(t *testing.T) {
		f := newOrderFixture(t, vipProduct())
		o, _ := f.uc.Create(ctx, "user-1", "vip-month", model.PaymentMethodWeChat)

		if err := f.uc.Cancel(ctx, o.OrderNo, "user-1", "first"); err != nil {
			t.Fatal(err)
		}
		if err := f.uc.Cancel(ctx, o.OrderNo, "user-1", "second"); err != nil {
			t.Errorf("repeat cancel must succeed, got %v", err)
		}
		got, _ := f.orders.FindByOrderNo(ctx, repository.NoTX, o.OrderNo)
		if got.CancelReason != "first" {
			t.Errorf("repeat cancel must not overwrite the reason, got %q", got.CancelReason)
		}
	})

	t.Run("paid order does not cancel", func(t *testing.T) {
		f := newOrderFixture(t, vipProduct())
		o, _ := f.uc.Create(ctx, "user-1", "vip-month", model.PaymentMethodWeChat)
		if _, err := f.orders.MarkPaid(ctx, repository.NoTX, o.OrderNo, "txn-1", f.now); err != nil {
			t.Fatal(err)
		}
		if err := f.uc.Cancel(ctx, o.OrderNo, "user-1", "too late"); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("other user's order", func(t *testing.T) {
		f := newOrderFixture(t, vipProduct())
		o, _ := f.uc.Create(ctx, "user-1", "vip-month", model.PaymentMethodWeChat)
		if err := f.uc.Cancel(ctx, o.OrderNo, "user-2", "mine now"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestOrderRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("points order reverses the grant", func(t *testing.T) {
		f := newOrderFixture(t, pointsProduct())
		o, _ := f.uc.Create(ctx, "user-1", "pts-500", model.PaymentMethodAlipay)
		if _, err := f.orders.MarkPaid(ctx, repository.NoTX, o.OrderNo, "txn-1", f.now); err != nil {
			t.Fatal(err)
		}
		// Simulate the points grant the callback pipeline would have written.
		if err := f.ledger.Append(ctx, repository.NoTX, &model.LedgerRecord{
			ID: "01H0000000000000000000000A", UserID: "user-1",
			PointsChange: 500, BalanceAfter: 500,
			ChangeType: model.ChangeTypePurchase, SourceID: o.OrderNo, CreatedAt: f.now,
		}); err != nil {
			t.Fatal(err)
		}

		if err := f.uc.Refund(ctx, o.OrderNo, "quality complaint"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := f.orders.FindByOrderNo(ctx, repository.NoTX, o.OrderNo)
		if got.Status != model.OrderStatusRefunded {
			t.Errorf("expected refunded, got %s", got.Status)
		}
		balance, _ := f.ledger.CurrentBalance(ctx, repository.NoTX, "user-1")
		if balance != 0 {
			t.Errorf("expected compensating entry to zero the balance, got %d", balance)
		}
		if c := f.ledger.count("user-1"); c != 2 {
			t.Errorf("refund must append, never delete: expected 2 records, got %d", c)
		}
	})

	t.Run("pending order cannot be refunded", func(t *testing.T) {
		f := newOrderFixture(t, pointsProduct())
		o, _ := f.uc.Create(ctx, "user-1", "pts-500", model.PaymentMethodAlipay)
		if err := f.uc.Refund(ctx, o.OrderNo, "oops"); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})
}
