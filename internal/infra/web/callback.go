package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"design-market/internal/domain"
	"design-market/internal/domain/ports/adapter"
	"design-market/internal/infra/logging"
)

// handlePaymentNotify is the webhook entry point. Ack discipline:
//   - success ack ONLY after the atomic unit committed (or for idempotent
//     replays and authenticated non-payment notices);
//   - malformed or unverifiable payloads get the provider's failure ack, which
//     per convention stops redelivery of garbage;
//   - business rejects (unknown order, amount mismatch) also get the failure
//     ack — the anomaly record is the follow-up path, not a retry;
//   - transient storage errors get HTTP 500 with no provider ack at all, so
//     the provider redelivers and idempotency absorbs the replay.
func (s *Server) handlePaymentNotify(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := s.providers[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	notice, err := provider.ParseNotification(r)
	if err != nil {
		switch {
		case errors.Is(err, adapter.ErrNotPayment):
			// Authentic failure/cancel notice: nothing to apply, stop retries.
			s.ack(w, provider, true, "")
		case errors.Is(err, domain.ErrInvalidSignature):
			s.log.Warn().Str("provider", name).Msg("callback signature verification failed")
			s.ack(w, provider, false, "signature mismatch")
		default:
			s.log.Warn().Str("provider", name).Err(err).Msg("malformed callback payload")
			s.ack(w, provider, false, "malformed payload")
		}
		return
	}

	ctx := logging.WithOrderNo(r.Context(), notice.OrderNo)
	err = s.callbacks.Process(ctx, notice)
	switch {
	case err == nil:
		s.ack(w, provider, true, "")
	case errors.Is(err, domain.ErrNotFound):
		logging.With(ctx, s.log).Warn().Msg("callback for unknown order")
		s.ack(w, provider, false, "order not found")
	case errors.Is(err, domain.ErrAmountMismatch):
		logging.With(ctx, s.log).Warn().Msg("callback amount mismatch")
		s.ack(w, provider, false, "amount mismatch")
	case errors.Is(err, domain.ErrInvalidArgument):
		s.ack(w, provider, false, "invalid notice")
	default:
		// Transient: no ack, provider will retry the whole notification.
		http.Error(w, "temporary failure", http.StatusInternalServerError)
	}
}

func (s *Server) ack(w http.ResponseWriter, p adapter.PaymentProvider, success bool, reason string) {
	var ct string
	var body []byte
	if success {
		ct, body = p.SuccessAck()
	} else {
		ct, body = p.FailAck(reason)
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
