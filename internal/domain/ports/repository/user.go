package repository

import (
	"context"
	"time"

	"design-market/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)

	// UpdateVIP persists the VIP fields computed by the renewal calculator.
	// Only the callback pipeline and the expiry sweep call this.
	UpdateVIP(ctx context.Context, tx Tx, userID string, vip model.VIPState) error

	// DowngradeExpired clears vip_level for users whose non-lifetime VIP has
	// passed its expiry, returning the number of rows changed. Conditional on
	// current state, so overlapping sweep runs are harmless.
	DowngradeExpired(ctx context.Context, tx Tx, now time.Time) (int, error)

	// ListExpiringBetween returns users whose VIP expires inside [from, to),
	// excluding lifetime users. Used by the reminder sweep.
	ListExpiringBetween(ctx context.Context, tx Tx, from, to time.Time, limit int) ([]*model.User, error)
}
