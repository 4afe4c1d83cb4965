package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/shopspring/decimal"
)

// PromotionStore defines the database methods needed by promotion handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PromotionStore interface {
	ListPromotions(ctx context.Context) ([]database.Promotion, error)
	GetPromotion(ctx context.Context, id uuid.UUID) (database.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (database.Promotion, error)
	CreatePromotion(ctx context.Context, arg database.CreatePromotionParams) (database.Promotion, error)
	UpdatePromotion(ctx context.Context, arg database.UpdatePromotionParams) (database.Promotion, error)
	SoftDeletePromotion(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// PromotionHandler handles promotion endpoints.
type PromotionHandler struct {
	store PromotionStore
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(store PromotionStore) *PromotionHandler {
	return &PromotionHandler{store: store}
}

// RegisterPublicRoutes registers the storefront promotion reads.
func (h *PromotionHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/promotions", h.List)
	r.Get("/promotions/code/{code}", h.ValidateCode)
}

// RegisterAdminRoutes registers promotion writes. Mounted admin-only.
func (h *PromotionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/promotions/{id}", h.Get)
	r.Post("/promotions", h.Create)
	r.Put("/promotions/{id}", h.Update)
	r.Delete("/promotions/{id}", h.Delete)
}

// --- Request / Response types ---

type promotionRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	Code          string `json:"code"`
	ValidFrom     string `json:"valid_from"`
	ValidUntil    string `json:"valid_until"`
	MinPurchase   string `json:"min_purchase"`
}

type promotionResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	Code          *string   `json:"code"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
	MinPurchase   string    `json:"min_purchase"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPromotionResponse(p database.Promotion) promotionResponse {
	return promotionResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		DiscountType:  p.DiscountType,
		DiscountValue: numericToString(p.DiscountValue),
		Code:          textOrNil(p.Code),
		ValidFrom:     p.ValidFrom,
		ValidUntil:    p.ValidUntil,
		MinPurchase:   numericToString(p.MinPurchase),
		CreatedAt:     p.CreatedAt,
	}
}

func isValidDiscountType(t string) bool {
	switch t {
	case enum.DiscountTypePercentage, enum.DiscountTypeFixed:
		return true
	}
	return false
}

// --- Handlers ---

// List returns all active promotions.
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.store.ListPromotions(r.Context())
	if err != nil {
		writeInternalError(w, "list promotions", err)
		return
	}

	resp := make([]promotionResponse, len(promotions))
	for i, p := range promotions {
		resp[i] = toPromotionResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ValidateCode checks a promo code against its validity window and minimum
// purchase. The storefront passes the current cart subtotal in ?subtotal=.
func (h *PromotionHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid code")
		return
	}

	promo, err := h.store.GetPromotionByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(w, "get promotion by code", err)
		return
	}

	now := time.Now()
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		writeError(w, http.StatusConflict, "promotion is not currently valid")
		return
	}

	if s := r.URL.Query().Get("subtotal"); s != "" {
		subtotal, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid subtotal")
			return
		}
		minPurchase, err := decimal.NewFromString(numericToString(promo.MinPurchase))
		if err == nil && subtotal.LessThan(minPurchase) {
			writeError(w, http.StatusConflict, "subtotal below minimum purchase")
			return
		}
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(promo))
}

// Get returns a single promotion by ID.
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid promotion ID")
		return
	}

	promo, err := h.store.GetPromotion(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(w, "get promotion", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(promo))
}

func parsePromotionRequest(w http.ResponseWriter, req promotionRequest) (database.CreatePromotionParams, bool) {
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return database.CreatePromotionParams{}, false
	}
	if !isValidDiscountType(req.DiscountType) {
		writeError(w, http.StatusBadRequest, "invalid discount_type")
		return database.CreatePromotionParams{}, false
	}

	value, err := parsePrice(req.DiscountValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid discount_value")
		return database.CreatePromotionParams{}, false
	}

	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid valid_from, use RFC 3339")
		return database.CreatePromotionParams{}, false
	}
	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid valid_until, use RFC 3339")
		return database.CreatePromotionParams{}, false
	}
	if !validUntil.After(validFrom) {
		writeError(w, http.StatusBadRequest, "valid_until must be after valid_from")
		return database.CreatePromotionParams{}, false
	}

	minPurchase := pgtype.Numeric{}
	if req.MinPurchase != "" {
		minPurchase, err = parsePrice(req.MinPurchase)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_purchase")
			return database.CreatePromotionParams{}, false
		}
	} else {
		_ = minPurchase.Scan("0")
	}

	code := pgtype.Text{}
	if req.Code != "" {
		code = pgtype.Text{String: strings.ToUpper(req.Code), Valid: true}
	}

	return database.CreatePromotionParams{
		Name:          req.Name,
		Description:   req.Description,
		DiscountType:  req.DiscountType,
		DiscountValue: value,
		Code:          code,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		MinPurchase:   minPurchase,
	}, true
}

// Create adds a new promotion.
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := parsePromotionRequest(w, req)
	if !ok {
		return
	}

	promo, err := h.store.CreatePromotion(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "code already in use")
			return
		}
		writeInternalError(w, "create promotion", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPromotionResponse(promo))
}

// Update modifies an existing promotion.
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid promotion ID")
		return
	}

	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := parsePromotionRequest(w, req)
	if !ok {
		return
	}

	promo, err := h.store.UpdatePromotion(r.Context(), database.UpdatePromotionParams{
		Name:          params.Name,
		Description:   params.Description,
		DiscountType:  params.DiscountType,
		DiscountValue: params.DiscountValue,
		Code:          params.Code,
		ValidFrom:     params.ValidFrom,
		ValidUntil:    params.ValidUntil,
		MinPurchase:   params.MinPurchase,
		ID:            id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "code already in use")
			return
		}
		writeInternalError(w, "update promotion", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(promo))
}

// Delete soft-deletes a promotion.
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid promotion ID")
		return
	}

	if _, err := h.store.SoftDeletePromotion(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		writeInternalError(w, "delete promotion", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
