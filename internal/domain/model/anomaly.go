package model

import "time"

type AnomalyKind string

const (
	// AnomalyAmountMismatch: callback amount differs from the order amount.
	AnomalyAmountMismatch AnomalyKind = "amount_mismatch"
	// AnomalyDuplicatePayment: order already paid with a different transaction id.
	AnomalyDuplicatePayment AnomalyKind = "duplicate_payment"
	// AnomalyOrphanOrder: a committed callback record exists but the order never
	// left pending (lost update, found by reconciliation).
	AnomalyOrphanOrder AnomalyKind = "orphan_order"
	// AnomalyOrphanCallback: a verified callback arrived for an unknown or
	// already-terminal order.
	AnomalyOrphanCallback AnomalyKind = "orphan_callback"
)

// Anomaly is a condition that must never be auto-resolved: it is recorded as
// data for manual review instead of being thrown up the call stack.
type Anomaly struct {
	ID            string // UUID
	Kind          AnomalyKind
	OrderNo       string
	Provider      string
	TransactionID string
	Detail        string
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}
