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
	"github.com/momentos-dulces/api/internal/database"
)

// ZoneStore defines the database methods needed by delivery zone handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ZoneStore interface {
	ListDeliveryZones(ctx context.Context) ([]database.DeliveryZone, error)
	GetDeliveryZone(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error)
	CreateDeliveryZone(ctx context.Context, arg database.CreateDeliveryZoneParams) (database.DeliveryZone, error)
	UpdateDeliveryZone(ctx context.Context, arg database.UpdateDeliveryZoneParams) (database.DeliveryZone, error)
	SoftDeleteDeliveryZone(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	CountOrdersByZone(ctx context.Context, zoneID uuid.UUID) (int64, error)
}

// ZoneHandler handles delivery zone endpoints.
type ZoneHandler struct {
	store ZoneStore
}

// NewZoneHandler creates a new ZoneHandler.
func NewZoneHandler(store ZoneStore) *ZoneHandler {
	return &ZoneHandler{store: store}
}

// RegisterPublicRoutes registers the storefront zone reads. The checkout
// page needs these to show delivery costs before login.
func (h *ZoneHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/delivery-zones", h.List)
	r.Get("/delivery-zones/{id}", h.Get)
}

// RegisterAdminRoutes registers the zone writes. Mounted admin-only.
func (h *ZoneHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/delivery-zones", h.Create)
	r.Put("/delivery-zones/{id}", h.Update)
	r.Delete("/delivery-zones/{id}", h.Delete)
}

// --- Request / Response types ---

type zoneRequest struct {
	Name          string `json:"name"`
	Price         string `json:"price"`
	EstimatedTime string `json:"estimated_time"`
}

type zoneResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Price         string    `json:"price"`
	EstimatedTime string    `json:"estimated_time"`
}

func toZoneResponse(z database.DeliveryZone) zoneResponse {
	return zoneResponse{
		ID:            z.ID,
		Name:          z.Name,
		Price:         numericToString(z.Price),
		EstimatedTime: z.EstimatedTime,
	}
}

// --- Handlers ---

// List returns all active delivery zones.
func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	zones, err := h.store.ListDeliveryZones(r.Context())
	if err != nil {
		writeInternalError(w, "list delivery zones", err)
		return
	}

	resp := make([]zoneResponse, len(zones))
	for i, z := range zones {
		resp[i] = toZoneResponse(z)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single delivery zone by ID.
func (h *ZoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid zone ID")
		return
	}

	zone, err := h.store.GetDeliveryZone(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeInternalError(w, "get delivery zone", err)
		return
	}

	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}

func validateZoneRequest(w http.ResponseWriter, req zoneRequest) (database.CreateDeliveryZoneParams, bool) {
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return database.CreateDeliveryZoneParams{}, false
	}
	if req.Price == "" {
		writeError(w, http.StatusBadRequest, "price is required")
		return database.CreateDeliveryZoneParams{}, false
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeError(w, http.StatusBadRequest, "price must be >= 0")
		} else {
			writeError(w, http.StatusBadRequest, "invalid price")
		}
		return database.CreateDeliveryZoneParams{}, false
	}
	if strings.TrimSpace(req.EstimatedTime) == "" {
		writeError(w, http.StatusBadRequest, "estimated_time is required")
		return database.CreateDeliveryZoneParams{}, false
	}

	return database.CreateDeliveryZoneParams{
		Name:          req.Name,
		Price:         price,
		EstimatedTime: req.EstimatedTime,
	}, true
}

// Create adds a new delivery zone.
func (h *ZoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := validateZoneRequest(w, req)
	if !ok {
		return
	}

	zone, err := h.store.CreateDeliveryZone(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "zone already exists")
			return
		}
		writeInternalError(w, "create delivery zone", err)
		return
	}

	writeJSON(w, http.StatusCreated, toZoneResponse(zone))
}

// Update modifies an existing delivery zone. Orders placed before the
// change keep their snapshot of the old cost.
func (h *ZoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid zone ID")
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, ok := validateZoneRequest(w, req)
	if !ok {
		return
	}

	zone, err := h.store.UpdateDeliveryZone(r.Context(), database.UpdateDeliveryZoneParams{
		Name:          params.Name,
		Price:         params.Price,
		EstimatedTime: params.EstimatedTime,
		ID:            id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeInternalError(w, "update delivery zone", err)
		return
	}

	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}

// Delete soft-deletes a zone, refusing while any order references it.
func (h *ZoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid zone ID")
		return
	}

	count, err := h.store.CountOrdersByZone(r.Context(), id)
	if err != nil {
		writeInternalError(w, "count orders by zone", err)
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "zone has orders")
		return
	}

	if _, err := h.store.SoftDeleteDeliveryZone(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeInternalError(w, "delete delivery zone", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
