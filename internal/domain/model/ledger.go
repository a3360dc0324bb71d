package model

import "time"

type ChangeType string

const (
	ChangeTypePurchase ChangeType = "purchase" // points bought through a paid order
	ChangeTypeSpend    ChangeType = "spend"    // points spent on a resource
	ChangeTypeRefund   ChangeType = "refund"   // compensating entry for a refunded order
	ChangeTypeAdjust   ChangeType = "adjust"   // manual ops correction
)

// LedgerRecord is one append-only entry in a user's points ledger. Records are
// never mutated or deleted; corrections are new records. BalanceAfter snapshots
// the running balance at write time, so the latest record IS the balance.
type LedgerRecord struct {
	ID           string // ULID, lexically ordered by creation time
	UserID       string
	PointsChange int64 // signed
	BalanceAfter int64
	ChangeType   ChangeType
	SourceID     string // order number or resource reference
	CreatedAt    time.Time
}
