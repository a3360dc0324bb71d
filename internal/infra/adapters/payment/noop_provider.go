// File: internal/infra/adapters/payment/noop_provider.go
package payment

import (
	"net/http"
	"strconv"
	"time"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*NoopProvider)(nil)

// NoopProvider accepts unsigned form payloads. Dev and test use only.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) ParseNotification(r *http.Request) (*model.PaymentNotice, error) {
	if err := r.ParseForm(); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	amount, err := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return &model.PaymentNotice{
		Provider:      p.Name(),
		OrderNo:       r.PostForm.Get("order_no"),
		TransactionID: r.PostForm.Get("transaction_id"),
		Amount:        amount,
		PaidAt:        time.Now(),
	}, nil
}

func (p *NoopProvider) SuccessAck() (string, []byte) { return "text/plain", []byte("ok") }

func (p *NoopProvider) FailAck(string) (string, []byte) { return "text/plain", []byte("fail") }
