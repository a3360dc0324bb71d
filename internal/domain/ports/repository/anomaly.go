package repository

import (
	"context"

	"design-market/internal/domain/model"
)

type AnomalyRepository interface {
	// Save records an anomaly for manual review. Callers never fail their main
	// flow on a Save error; an anomaly that cannot be written is logged instead.
	Save(ctx context.Context, tx Tx, a *model.Anomaly) error

	// Exists checks for an unresolved anomaly of the same kind for the same
	// order, so the reconciliation sweep does not re-flag on every run.
	Exists(ctx context.Context, tx Tx, kind model.AnomalyKind, orderNo string) (bool, error)

	ListUnresolved(ctx context.Context, tx Tx, limit int) ([]*model.Anomaly, error)
}
