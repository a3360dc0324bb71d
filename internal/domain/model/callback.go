package model

import "time"

// CallbackRecord marks that a provider notification has produced its side
// effects. The database UNIQUE constraint on (provider, transaction_id) is the
// serialization point: inserting it first, inside the same transaction as the
// order transition, makes the business effect exactly-once under at-least-once
// webhook delivery.
type CallbackRecord struct {
	ID            string // UUID
	Provider      string
	TransactionID string
	OrderNo       string
	Amount        int64
	ReceivedAt    time.Time
}

// PaymentNotice is the provider-agnostic result of parsing and verifying one
// inbound notification. Provider adapters produce it; the callback pipeline
// consumes it.
type PaymentNotice struct {
	Provider      string
	OrderNo       string
	TransactionID string
	Amount        int64 // minor currency units
	PaidAt        time.Time
}
