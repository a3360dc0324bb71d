package model

import (
	"time"

	"design-market/internal/domain"
)

type ProductKind string

const (
	ProductKindVIP    ProductKind = "vip"
	ProductKindPoints ProductKind = "points"
)

// Product is a purchasable offering: either a VIP package (duration or lifetime)
// or a points package. Price lives here and only here; client-supplied prices
// are never trusted.
type Product struct {
	ID             string
	Name           string
	Kind           ProductKind
	Price          int64 // minor currency units
	DurationDays   int   // vip only
	GrantsLifetime bool  // vip only
	VIPLevel       int   // vip only; tier granted by this package
	Points         int64 // points only; credits granted on payment
	Active         bool
	CreatedAt      time.Time
}

func (p *Product) IsZero() bool { return p == nil || p.ID == "" }

// NewProduct validates and constructs a product.
func NewProduct(id, name string, kind ProductKind, price int64) (*Product, error) {
	if id == "" || name == "" || price <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if kind != ProductKindVIP && kind != ProductKindPoints {
		return nil, domain.ErrInvalidArgument
	}
	return &Product{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Price:     price,
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}
