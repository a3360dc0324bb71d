package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/infra/logging"
	"design-market/internal/usecase"
)

// The real gateway in front of this service injects the authenticated user id.
const userIDHeader = "X-User-ID"

type createOrderRequest struct {
	ProductID     string `json:"product_id"`
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	OrderID       string     `json:"order_id"`
	OrderNo       string     `json:"order_no"`
	OrderType     string     `json:"order_type"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		OrderType:     string(o.OrderType),
		Amount:        o.Amount,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	o, err := s.orders.Create(r.Context(), userID, req.ProductID, model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	o, err := s.orders.Get(r.Context(), chi.URLParam(r, "orderNo"), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	var req cancelOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "user cancelled"
	}
	if err := s.orders.Cancel(r.Context(), chi.URLParam(r, "orderNo"), userID, req.Reason); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "admin refund"
	}
	if err := s.orders.Refund(r.Context(), chi.URLParam(r, "orderNo"), req.Reason); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

func (s *Server) handlePointsBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := s.ledger.CurrentBalance(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *Server) handlePointsHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.ledger.History(r.Context(), userID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	type entry struct {
		PointsChange int64     `json:"points_change"`
		BalanceAfter int64     `json:"balance_after"`
		ChangeType   string    `json:"change_type"`
		SourceID     string    `json:"source_id"`
		CreatedAt    time.Time `json:"created_at"`
	}
	out := make([]entry, 0, len(records))
	for _, rec := range records {
		out = append(out, entry{rec.PointsChange, rec.BalanceAfter, string(rec.ChangeType), rec.SourceID, rec.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type productResponse struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Price          int64  `json:"price"`
	DurationDays   int    `json:"duration_days,omitempty"`
	GrantsLifetime bool   `json:"grants_lifetime,omitempty"`
	VIPLevel       int    `json:"vip_level,omitempty"`
	Points         int64  `json:"points,omitempty"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ProductID:      p.ID,
		Name:           p.Name,
		Kind:           string(p.Kind),
		Price:          p.Price,
		DurationDays:   p.DurationDays,
		GrantsLifetime: p.GrantsLifetime,
		VIPLevel:       p.VIPLevel,
		Points:         p.Points,
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type createProductRequest struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Price          int64  `json:"price"`
	DurationDays   int    `json:"duration_days"`
	GrantsLifetime bool   `json:"grants_lifetime"`
	VIPLevel       int    `json:"vip_level"`
	Points         int64  `json:"points"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	p, err := s.products.Create(r.Context(), usecase.CreateProductInput{
		Name:           req.Name,
		Kind:           model.ProductKind(req.Kind),
		Price:          req.Price,
		DurationDays:   req.DurationDays,
		GrantsLifetime: req.GrantsLifetime,
		VIPLevel:       req.VIPLevel,
		Points:         req.Points,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (s *Server) handleListAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	anomalies, err := s.anomalies.ListUnresolved(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	type entry struct {
		ID            string    `json:"id"`
		Kind          string    `json:"kind"`
		OrderNo       string    `json:"order_no"`
		Provider      string    `json:"provider,omitempty"`
		TransactionID string    `json:"transaction_id,omitempty"`
		Detail        string    `json:"detail"`
		CreatedAt     time.Time `json:"created_at"`
	}
	out := make([]entry, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, entry{a.ID, string(a.Kind), a.OrderNo, a.Provider, a.TransactionID, a.Detail, a.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, "operation not allowed in current state")
	case errors.Is(err, domain.ErrProductInactive):
		writeError(w, http.StatusConflict, "product is not purchasable")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, domain.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, "insufficient points")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
