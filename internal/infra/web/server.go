package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"design-market/internal/domain/ports/adapter"
	"design-market/internal/infra/logging"
	"design-market/internal/usecase"
)

type Server struct {
	orders    usecase.OrderUseCase
	ledger    usecase.LedgerUseCase
	callbacks usecase.CallbackUseCase
	products  usecase.ProductUseCase
	anomalies usecase.AnomalyUseCase
	providers map[string]adapter.PaymentProvider
	apiKey    string // admin endpoints
	log       *zerolog.Logger
}

func NewServer(
	orders usecase.OrderUseCase,
	ledger usecase.LedgerUseCase,
	callbacks usecase.CallbackUseCase,
	products usecase.ProductUseCase,
	anomalies usecase.AnomalyUseCase,
	providers []adapter.PaymentProvider,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "Web").Logger()
	m := make(map[string]adapter.PaymentProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Server{
		orders:    orders,
		ledger:    ledger,
		callbacks: callbacks,
		products:  products,
		anomalies: anomalies,
		providers: m,
		apiKey:    apiKey,
		log:       &l,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestContext)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{orderNo}", s.handleGetOrder)
		r.Post("/orders/{orderNo}/cancel", s.handleCancelOrder)
		r.Get("/users/{userID}/points", s.handlePointsBalance)
		r.Get("/users/{userID}/points/history", s.handlePointsHistory)

		r.Group(func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/admin/orders/{orderNo}/refund", s.handleRefundOrder)
			r.Post("/admin/products", s.handleCreateProduct)
			r.Get("/admin/anomalies", s.handleListAnomalies)
		})
	})

	// Provider callbacks keep their native payload shape and ack convention.
	r.Post("/payment/notify/{provider}", s.handlePaymentNotify)

	return r
}

// requestContext copies request identity into the context so every log line
// downstream carries trace_id and user_id.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.WithTraceID(ctx, id)
		}
		if uid := r.Header.Get(userIDHeader); uid != "" {
			ctx = logging.WithUserID(ctx, uid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth is simple static Bearer token auth for the admin surface.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin api key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if parts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
