package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
)

// CustomizationStore defines the database methods needed by variant and
// customization handlers. Satisfied by *database.Queries.
type CustomizationStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)

	CreateVariant(ctx context.Context, arg database.CreateVariantParams) (database.ProductVariant, error)
	UpdateVariant(ctx context.Context, arg database.UpdateVariantParams) (database.ProductVariant, error)
	SoftDeleteVariant(ctx context.Context, arg database.SoftDeleteVariantParams) (uuid.UUID, error)

	GetCustomization(ctx context.Context, arg database.GetCustomizationParams) (database.ProductCustomization, error)
	CreateCustomization(ctx context.Context, arg database.CreateCustomizationParams) (database.ProductCustomization, error)
	UpdateCustomization(ctx context.Context, arg database.UpdateCustomizationParams) (database.ProductCustomization, error)
	DeleteCustomization(ctx context.Context, arg database.DeleteCustomizationParams) (uuid.UUID, error)

	CreateOption(ctx context.Context, arg database.CreateOptionParams) (database.CustomizationOption, error)
	UpdateOption(ctx context.Context, arg database.UpdateOptionParams) (database.CustomizationOption, error)
	DeleteOption(ctx context.Context, arg database.DeleteOptionParams) (uuid.UUID, error)
}

// CustomizationHandler handles variant and customization management under a
// product. All routes are admin-only.
type CustomizationHandler struct {
	store CustomizationStore
}

// NewCustomizationHandler creates a new CustomizationHandler.
func NewCustomizationHandler(store CustomizationStore) *CustomizationHandler {
	return &CustomizationHandler{store: store}
}

// RegisterRoutes registers the nested catalog-editing endpoints.
// Mounted under /products/{pid}.
func (h *CustomizationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/products/{pid}/variants", h.CreateVariant)
	r.Put("/products/{pid}/variants/{id}", h.UpdateVariant)
	r.Delete("/products/{pid}/variants/{id}", h.DeleteVariant)

	r.Post("/products/{pid}/customizations", h.CreateCustomization)
	r.Put("/products/{pid}/customizations/{id}", h.UpdateCustomization)
	r.Delete("/products/{pid}/customizations/{id}", h.DeleteCustomization)

	r.Post("/products/{pid}/customizations/{cid}/options", h.CreateOption)
	r.Put("/products/{pid}/customizations/{cid}/options/{id}", h.UpdateOption)
	r.Delete("/products/{pid}/customizations/{cid}/options/{id}", h.DeleteOption)
}

// --- Request types ---

type variantRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Unit  string `json:"unit"`
}

type customizationRequest struct {
	Name              string `json:"name"`
	CustomizationType string `json:"customization_type"`
}

type optionRequest struct {
	Name          string `json:"name"`
	PriceModifier string `json:"price_modifier"`
}

func isValidCustomizationType(t string) bool {
	switch t {
	case enum.CustomizationTypeSize, enum.CustomizationTypeTopping,
		enum.CustomizationTypeFilling, enum.CustomizationTypeGlaze,
		enum.CustomizationTypeDoughType, enum.CustomizationTypePortion:
		return true
	}
	return false
}

// parseModifier parses an option price modifier. Unlike prices, modifiers
// may be negative (e.g. a smaller portion).
func parseModifier(s string) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func (h *CustomizationHandler) productFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return uuid.Nil, false
	}

	if _, err := h.store.GetProduct(r.Context(), pid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return uuid.Nil, false
		}
		writeInternalError(w, "get product", err)
		return uuid.Nil, false
	}
	return pid, true
}

// --- Variant handlers ---

// CreateVariant adds a variant to a product.
func (h *CustomizationHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	var req variantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price == "" {
		writeError(w, http.StatusBadRequest, "price is required")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeError(w, http.StatusBadRequest, "price must be >= 0")
		} else {
			writeError(w, http.StatusBadRequest, "invalid price")
		}
		return
	}

	unit := pgtype.Text{}
	if req.Unit != "" {
		unit = pgtype.Text{String: req.Unit, Valid: true}
	}

	variant, err := h.store.CreateVariant(r.Context(), database.CreateVariantParams{
		ProductID: pid,
		Name:      req.Name,
		Price:     price,
		Unit:      unit,
	})
	if err != nil {
		writeInternalError(w, "create variant", err)
		return
	}

	writeJSON(w, http.StatusCreated, toVariantResponse(variant))
}

// UpdateVariant modifies a variant of a product.
func (h *CustomizationHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	var req variantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeError(w, http.StatusBadRequest, "price must be >= 0")
		} else {
			writeError(w, http.StatusBadRequest, "invalid price")
		}
		return
	}

	unit := pgtype.Text{}
	if req.Unit != "" {
		unit = pgtype.Text{String: req.Unit, Valid: true}
	}

	variant, err := h.store.UpdateVariant(r.Context(), database.UpdateVariantParams{
		Name:      req.Name,
		Price:     price,
		Unit:      unit,
		ID:        id,
		ProductID: pid,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "variant not found")
			return
		}
		writeInternalError(w, "update variant", err)
		return
	}

	writeJSON(w, http.StatusOK, toVariantResponse(variant))
}

// DeleteVariant soft-deletes a variant.
func (h *CustomizationHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid variant ID")
		return
	}

	if _, err := h.store.SoftDeleteVariant(r.Context(), database.SoftDeleteVariantParams{ID: id, ProductID: pid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "variant not found")
			return
		}
		writeInternalError(w, "delete variant", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Customization group handlers ---

// CreateCustomization adds a customization group to a product.
func (h *CustomizationHandler) CreateCustomization(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	var req customizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !isValidCustomizationType(req.CustomizationType) {
		writeError(w, http.StatusBadRequest, "invalid customization_type")
		return
	}

	group, err := h.store.CreateCustomization(r.Context(), database.CreateCustomizationParams{
		ProductID:         pid,
		Name:              req.Name,
		CustomizationType: req.CustomizationType,
	})
	if err != nil {
		writeInternalError(w, "create customization", err)
		return
	}

	writeJSON(w, http.StatusCreated, customizationResponse{
		ID:                group.ID,
		Name:              group.Name,
		CustomizationType: group.CustomizationType,
		Options:           []optionResponse{},
	})
}

// UpdateCustomization modifies a customization group.
func (h *CustomizationHandler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customization ID")
		return
	}

	var req customizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !isValidCustomizationType(req.CustomizationType) {
		writeError(w, http.StatusBadRequest, "invalid customization_type")
		return
	}

	group, err := h.store.UpdateCustomization(r.Context(), database.UpdateCustomizationParams{
		Name:              req.Name,
		CustomizationType: req.CustomizationType,
		ID:                id,
		ProductID:         pid,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customization not found")
			return
		}
		writeInternalError(w, "update customization", err)
		return
	}

	writeJSON(w, http.StatusOK, customizationResponse{
		ID:                group.ID,
		Name:              group.Name,
		CustomizationType: group.CustomizationType,
	})
}

// DeleteCustomization removes a group and its options.
func (h *CustomizationHandler) DeleteCustomization(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customization ID")
		return
	}

	if _, err := h.store.DeleteCustomization(r.Context(), database.DeleteCustomizationParams{ID: id, ProductID: pid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customization not found")
			return
		}
		writeInternalError(w, "delete customization", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Option handlers ---

// groupFromURL validates that the {cid} group belongs to the {pid} product.
func (h *CustomizationHandler) groupFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, ok := h.productFromURL(w, r)
	if !ok {
		return uuid.Nil, false
	}

	cid, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customization ID")
		return uuid.Nil, false
	}

	if _, err := h.store.GetCustomization(r.Context(), database.GetCustomizationParams{ID: cid, ProductID: pid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customization not found")
			return uuid.Nil, false
		}
		writeInternalError(w, "get customization", err)
		return uuid.Nil, false
	}
	return cid, true
}

// CreateOption adds an option to a customization group.
func (h *CustomizationHandler) CreateOption(w http.ResponseWriter, r *http.Request) {
	cid, ok := h.groupFromURL(w, r)
	if !ok {
		return
	}

	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PriceModifier == "" {
		req.PriceModifier = "0"
	}
	modifier, err := parseModifier(req.PriceModifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price_modifier")
		return
	}

	option, err := h.store.CreateOption(r.Context(), database.CreateOptionParams{
		CustomizationID: cid,
		Name:            req.Name,
		PriceModifier:   modifier,
	})
	if err != nil {
		writeInternalError(w, "create option", err)
		return
	}

	writeJSON(w, http.StatusCreated, optionResponse{
		ID:            option.ID,
		Name:          option.Name,
		PriceModifier: numericToString(option.PriceModifier),
	})
}

// UpdateOption modifies an option.
func (h *CustomizationHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	cid, ok := h.groupFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid option ID")
		return
	}

	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PriceModifier == "" {
		req.PriceModifier = "0"
	}
	modifier, err := parseModifier(req.PriceModifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price_modifier")
		return
	}

	option, err := h.store.UpdateOption(r.Context(), database.UpdateOptionParams{
		Name:            req.Name,
		PriceModifier:   modifier,
		ID:              id,
		CustomizationID: cid,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "option not found")
			return
		}
		writeInternalError(w, "update option", err)
		return
	}

	writeJSON(w, http.StatusOK, optionResponse{
		ID:            option.ID,
		Name:          option.Name,
		PriceModifier: numericToString(option.PriceModifier),
	})
}

// DeleteOption removes an option.
func (h *CustomizationHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	cid, ok := h.groupFromURL(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid option ID")
		return
	}

	if _, err := h.store.DeleteOption(r.Context(), database.DeleteOptionParams{ID: id, CustomizationID: cid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "option not found")
			return
		}
		writeInternalError(w, "delete option", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
