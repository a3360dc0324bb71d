package model

import (
	"fmt"
	"math/rand"
	"time"

	"design-market/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // created, awaiting payment
	OrderStatusPaid      OrderStatus = "paid"      // provider confirmed payment
	OrderStatusCancelled OrderStatus = "cancelled" // user or admin cancel
	OrderStatusRefunded  OrderStatus = "refunded"  // paid and later refunded
	OrderStatusExpired   OrderStatus = "expired"   // timed out while pending
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled ||
		s == OrderStatusRefunded || s == OrderStatusExpired
}

type OrderType string

const (
	OrderTypeVIP    OrderType = "vip"
	OrderTypePoints OrderType = "points"
)

type PaymentMethod string

const (
	PaymentMethodWeChat PaymentMethod = "wechat"
	PaymentMethodAlipay PaymentMethod = "alipay"
)

// Order is a single purchase intent moving through a one-directional state machine.
// Status only ever advances: pending -> paid -> refunded, or pending -> cancelled/expired.
// TransactionID is stamped at most once, on the pending -> paid transition.
type Order struct {
	ID            string // UUID
	OrderNo       string // human-facing business key, globally unique
	UserID        string
	OrderType     OrderType
	ProductID     string
	Amount        int64 // minor currency units
	PaymentMethod PaymentMethod
	Status        OrderStatus
	TransactionID string // provider transaction reference, set on paid
	CreatedAt     time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string
}

// NewOrder validates inputs and constructs a pending order priced from the product.
func NewOrder(id, userID string, product *Product, method PaymentMethod, now time.Time) (*Order, error) {
	if id == "" || userID == "" || product == nil {
		return nil, domain.ErrInvalidArgument
	}
	if method != PaymentMethodWeChat && method != PaymentMethodAlipay {
		return nil, domain.ErrInvalidArgument
	}
	var ot OrderType
	switch product.Kind {
	case ProductKindVIP:
		ot = OrderTypeVIP
	case ProductKindPoints:
		ot = OrderTypePoints
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &Order{
		ID:            id,
		OrderNo:       NewOrderNo(now),
		UserID:        userID,
		OrderType:     ot,
		ProductID:     product.ID,
		Amount:        product.Price,
		PaymentMethod: method,
		Status:        OrderStatusPending,
		CreatedAt:     now,
	}, nil
}

// NewOrderNo builds a business order number from a second-resolution timestamp
// plus six random digits. Uniqueness is ultimately enforced by the database.
func NewOrderNo(now time.Time) string {
	return fmt.Sprintf("%s%06d", now.Format("20060102150405"), rand.Intn(1000000))
}

// CanCancel reports whether a cancel request is a valid transition, a harmless
// replay, or an error. Replay covers cancelled and expired orders: both are
// "not going to be paid" terminals and cancelling them again is a no-op success.
func (o *Order) CanCancel() (replay bool, err error) {
	switch o.Status {
	case OrderStatusPending:
		return false, nil
	case OrderStatusCancelled, OrderStatusExpired:
		return true, nil
	default:
		return false, domain.ErrInvalidState
	}
}
