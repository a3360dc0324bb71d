// File: internal/usecase/product_uc.go
package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

// Compile-time check
var _ ProductUseCase = (*productUC)(nil)

// CreateProductInput carries the catalog fields for a new product. Only the
// fields matching Kind are read; the rest stay zero.
type CreateProductInput struct {
	Name           string
	Kind           model.ProductKind
	Price          int64
	DurationDays   int
	GrantsLifetime bool
	VIPLevel       int
	Points         int64
}

type ProductUseCase interface {
	// List returns the active catalog shown to buyers.
	List(ctx context.Context) ([]*model.Product, error)
	// Create adds a product to the catalog. Kind-specific fields are checked:
	// a VIP package needs a positive tier and a duration or the lifetime flag,
	// a points package needs a positive credit amount.
	Create(ctx context.Context, in CreateProductInput) (*model.Product, error)
}

type productUC struct {
	products repository.ProductRepository
	log      *zerolog.Logger
}

func NewProductUseCase(products repository.ProductRepository, logger *zerolog.Logger) *productUC {
	l := logger.With().Str("component", "ProductUC").Logger()
	return &productUC{products: products, log: &l}
}

func (u *productUC) List(ctx context.Context) ([]*model.Product, error) {
	return u.products.ListActive(ctx, repository.NoTX)
}

func (u *productUC) Create(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	p, err := model.NewProduct(uuid.NewString(), in.Name, in.Kind, in.Price)
	if err != nil {
		return nil, err
	}
	switch in.Kind {
	case model.ProductKindVIP:
		if in.VIPLevel <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		if in.DurationDays <= 0 && !in.GrantsLifetime {
			return nil, domain.ErrInvalidArgument
		}
		p.DurationDays = in.DurationDays
		p.GrantsLifetime = in.GrantsLifetime
		p.VIPLevel = in.VIPLevel
	case model.ProductKindPoints:
		if in.Points <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		p.Points = in.Points
	}
	if err := u.products.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("product_id", p.ID).Str("kind", string(p.Kind)).Int64("price", p.Price).Msg("product created")
	return p, nil
}
