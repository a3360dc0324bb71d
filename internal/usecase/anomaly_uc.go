// File: internal/usecase/anomaly_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
)

// Compile-time check
var _ AnomalyUseCase = (*anomalyUC)(nil)

const maxAnomalyPageSize = 100

type AnomalyUseCase interface {
	// ListUnresolved returns open anomalies for manual review, oldest first.
	ListUnresolved(ctx context.Context, limit int) ([]*model.Anomaly, error)
}

type anomalyUC struct {
	anomalies repository.AnomalyRepository
	log       *zerolog.Logger
}

func NewAnomalyUseCase(anomalies repository.AnomalyRepository, logger *zerolog.Logger) *anomalyUC {
	l := logger.With().Str("component", "AnomalyUC").Logger()
	return &anomalyUC{anomalies: anomalies, log: &l}
}

func (u *anomalyUC) ListUnresolved(ctx context.Context, limit int) ([]*model.Anomaly, error) {
	if limit <= 0 || limit > maxAnomalyPageSize {
		limit = maxAnomalyPageSize
	}
	return u.anomalies.ListUnresolved(ctx, repository.NoTX, limit)
}
