package adapter

import (
	"errors"
	"net/http"

	"design-market/internal/domain/model"
)

// ErrNotPayment marks an authentic notification that carries no successful
// payment (explicit failure or cancellation notice). The endpoint acks success
// so the provider stops retrying, and no side effects run.
var ErrNotPayment = errors.New("notification is not a successful payment")

// PaymentProvider verifies one provider's inbound notifications. Each provider
// keeps its native payload shape and ack convention; only the internal
// processing pipeline behind the notice is shared.
type PaymentProvider interface {
	Name() string

	// ParseNotification reads and authenticates the raw webhook request and
	// maps it to a provider-agnostic notice. Returns
	// domain.ErrInvalidSignature when the payload is well-formed but fails
	// verification, domain.ErrInvalidArgument when it cannot be parsed at all.
	ParseNotification(r *http.Request) (*model.PaymentNotice, error)

	// SuccessAck and FailAck are the literal response bodies this provider
	// expects. Success must only be written after the atomic unit commits;
	// anything else makes the provider retry.
	SuccessAck() (contentType string, body []byte)
	FailAck(reason string) (contentType string, body []byte)
}
