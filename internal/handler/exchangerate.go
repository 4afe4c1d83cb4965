package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/middleware"
	"github.com/momentos-dulces/api/internal/rate"
	"github.com/shopspring/decimal"
)

// RateService defines the rate service methods the handler needs.
// Satisfied by *rate.Service.
type RateService interface {
	Get(ctx context.Context) (rate.Rate, error)
	Update(ctx context.Context, usdToBs decimal.Decimal, updatedBy pgtype.UUID) (rate.Rate, error)
}

// ExchangeRateHandler serves the USD→Bs reference rate.
type ExchangeRateHandler struct {
	svc RateService
}

// NewExchangeRateHandler creates a new ExchangeRateHandler.
func NewExchangeRateHandler(svc RateService) *ExchangeRateHandler {
	return &ExchangeRateHandler{svc: svc}
}

// RegisterPublicRoutes registers the public rate read. The storefront shows
// Bs prices next to USD, so this needs no auth.
func (h *ExchangeRateHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/exchange-rate", h.Get)
}

// RegisterAdminRoutes registers the rate write. Mounted admin-only.
func (h *ExchangeRateHandler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/exchange-rate", h.Update)
}

type updateRateRequest struct {
	UsdToBs string `json:"usd_to_bs"`
}

// Get returns the current exchange rate.
func (h *ExchangeRateHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.svc.Get(r.Context())
	if err != nil {
		if errors.Is(err, rate.ErrNotSet) {
			writeError(w, http.StatusNotFound, "exchange rate not set")
			return
		}
		writeInternalError(w, "get exchange rate", err)
		return
	}

	writeJSON(w, http.StatusOK, current)
}

// Update sets a new exchange rate and records who changed it.
func (h *ExchangeRateHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, err := decimal.NewFromString(req.UsdToBs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid usd_to_bs")
		return
	}
	if !value.IsPositive() {
		writeError(w, http.StatusBadRequest, "usd_to_bs must be > 0")
		return
	}

	updated, err := h.svc.Update(r.Context(), value, pgtype.UUID{Bytes: claims.UserID, Valid: true})
	if err != nil {
		writeInternalError(w, "update exchange rate", err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
