// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

type LedgerUseCase interface {
	// Append writes one ledger record inside the caller's transaction and
	// returns the new balance. LatestForUpdate takes the per-user append lock
	// first, so two concurrent appends for the same user serialize and both
	// snapshots stay consistent. Refund and adjust entries may drive the
	// balance negative (corrections); purchase and spend may not.
	Append(ctx context.Context, tx repository.Tx, userID string, change int64, ct model.ChangeType, sourceID string) (int64, error)
	// SpendPoints debits points for a resource purchase in its own transaction.
	SpendPoints(ctx context.Context, userID string, points int64, resourceRef string) (int64, error)
	CurrentBalance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]*model.LedgerRecord, error)
}

type ledgerUC struct {
	ledger repository.LedgerRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
	now    func() time.Time
}

func NewLedgerUseCase(ledger repository.LedgerRepository, tm repository.TransactionManager, logger *zerolog.Logger) *ledgerUC {
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{ledger: ledger, tm: tm, log: &l, now: time.Now}
}

func (u *ledgerUC) Append(ctx context.Context, tx repository.Tx, userID string, change int64, ct model.ChangeType, sourceID string) (int64, error) {
	if userID == "" || change == 0 {
		return 0, domain.ErrInvalidArgument
	}

	var balance int64
	latest, err := u.ledger.LatestForUpdate(ctx, tx, userID)
	switch {
	case err == nil:
		balance = latest.BalanceAfter
	case errors.Is(err, domain.ErrNotFound):
		balance = 0
	default:
		return 0, err
	}

	after := balance + change
	if after < 0 && (ct == model.ChangeTypePurchase || ct == model.ChangeTypeSpend) {
		return 0, domain.ErrInsufficientPoints
	}

	now := u.now()
	rec := &model.LedgerRecord{
		ID:           ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		UserID:       userID,
		PointsChange: change,
		BalanceAfter: after,
		ChangeType:   ct,
		SourceID:     sourceID,
		CreatedAt:    now,
	}
	if err := u.ledger.Append(ctx, tx, rec); err != nil {
		return 0, err
	}
	metrics.AddLedgerChange(string(ct), change)
	return after, nil
}

func (u *ledgerUC) SpendPoints(ctx context.Context, userID string, points int64, resourceRef string) (int64, error) {
	if points <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	var after int64
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		after, err = u.Append(ctx, tx, userID, -points, model.ChangeTypeSpend, resourceRef)
		return err
	})
	if err != nil {
		return 0, err
	}
	u.log.Info().Str("user_id", userID).Int64("points", points).
		Str("resource", resourceRef).Int64("balance", after).Msg("points spent")
	return after, nil
}

func (u *ledgerUC) CurrentBalance(ctx context.Context, userID string) (int64, error) {
	return u.ledger.CurrentBalance(ctx, repository.NoTX, userID)
}

func (u *ledgerUC) History(ctx context.Context, userID string, limit int) ([]*model.LedgerRecord, error) {
	return u.ledger.History(ctx, repository.NoTX, userID, limit)
}
