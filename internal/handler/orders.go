package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/momentos-dulces/api/internal/middleware"
	"github.com/momentos-dulces/api/internal/service"
	"github.com/momentos-dulces/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// Broadcaster pushes order events to the back-office board.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastJSON(eventType string, payload any)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterPublicRoutes registers the guest checkout endpoint. Logged-in
// customers hit the same route; the handler picks up claims when present.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterProtectedRoutes registers the authenticated order reads.
func (h *OrderHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Delete("/orders/{id}", h.Cancel)
}

// RegisterStaffRoutes registers the back-office order mutations.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/payment-status", h.UpdatePaymentStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerEmail   string                   `json:"customer_email"`
	CustomerPhone   string                   `json:"customer_phone"`
	DeliveryType    string                   `json:"delivery_type"`
	DeliveryAddress string                   `json:"delivery_address"`
	DeliveryZoneID  string                   `json:"delivery_zone_id"`
	PickupTime      string                   `json:"pickup_time"`
	PaymentMethod   string                   `json:"payment_method"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string   `json:"product_id"`
	VariantID string   `json:"variant_id"`
	Quantity  int32    `json:"quantity"`
	OptionIDs []string `json:"option_ids"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	UserID           *string             `json:"user_id"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email"`
	CustomerPhone    string              `json:"customer_phone"`
	Subtotal         string              `json:"subtotal"`
	DeliveryCost     string              `json:"delivery_cost"`
	Total            string              `json:"total"`
	Status           string              `json:"status"`
	DeliveryType     string              `json:"delivery_type"`
	DeliveryAddress  *string             `json:"delivery_address"`
	DeliveryZoneID   *string             `json:"delivery_zone_id"`
	DeliveryZoneName *string             `json:"delivery_zone_name"`
	PickupTime       *string             `json:"pickup_time"`
	PaymentMethod    string              `json:"payment_method"`
	PaymentStatus    string              `json:"payment_status"`
	Notes            *string             `json:"notes"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Items            []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      *string         `json:"product_id"`
	ProductName    string          `json:"product_name"`
	ProductImage   *string         `json:"product_image"`
	Quantity       int32           `json:"quantity"`
	UnitPrice      string          `json:"unit_price"`
	TotalPrice     string          `json:"total_price"`
	Customizations json.RawMessage `json:"customizations"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Subtotal:        numericToString(o.Subtotal),
		DeliveryCost:    numericToString(o.DeliveryCost),
		Total:           numericToString(o.Total),
		Status:          o.Status,
		DeliveryType:    o.DeliveryType,
		DeliveryAddress: textOrNil(o.DeliveryAddress),
		PickupTime:      textOrNil(o.PickupTime),
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		Notes:           textOrNil(o.Notes),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	if o.UserID.Valid {
		s := uuid.UUID(o.UserID.Bytes).String()
		resp.UserID = &s
	}
	if o.DeliveryZoneID.Valid {
		s := uuid.UUID(o.DeliveryZoneID.Bytes).String()
		resp.DeliveryZoneID = &s
	}
	if o.DeliveryZoneName.Valid {
		resp.DeliveryZoneName = &o.DeliveryZoneName.String
	}

	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:             it.ID,
		ProductName:    it.ProductName,
		ProductImage:   textOrNil(it.ProductImage),
		Quantity:       it.Quantity,
		UnitPrice:      numericToString(it.UnitPrice),
		TotalPrice:     numericToString(it.TotalPrice),
		Customizations: it.Customizations,
	}
	if it.ProductID.Valid {
		s := uuid.UUID(it.ProductID.Bytes).String()
		resp.ProductID = &s
	}
	if resp.Customizations == nil {
		resp.Customizations = json.RawMessage(`{}`)
	}
	return resp
}

// --- Handlers ---

// Create handles checkout for both guests and logged-in customers.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := service.CreateOrderRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryZoneID:  req.DeliveryZoneID,
		PickupTime:      req.PickupTime,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}

	// Attach the order to the account when a valid token came along.
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		svcReq.UserID = claims.UserID
	}

	svcReq.Items = make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcReq.Items[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			OptionIDs: item.OptionIDs,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		if isCheckoutValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, service.ErrZoneNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeInternalError(w, "create order", err)
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	h.hub.BroadcastJSON(ws.EventOrderCreated, map[string]string{
		"id":           result.Order.ID.String(),
		"order_number": result.Order.OrderNumber,
		"total":        numericToString(result.Order.Total),
	})

	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders. Customers only ever see their own; staff see all
// and can filter by status or the active/completed split.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if !enum.IsStaff(claims.Role) {
		params.UserID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	switch r.URL.Query().Get("view") {
	case "":
	case "active":
		params.ActiveOnly = pgtype.Bool{Bool: true, Valid: true}
	case "completed":
		params.ActiveOnly = pgtype.Bool{Bool: false, Valid: true}
	default:
		writeError(w, http.StatusBadRequest, "invalid view filter")
		return
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get returns an order with its items. Customers can only read their own.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, "get order", err)
		return
	}

	if !canReadOrder(claims.Role, claims.UserID, order) {
		// 404 instead of 403 so order IDs are not enumerable.
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		writeInternalError(w, "list order items", err)
		return
	}

	resp := toOrderResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status (staff only).
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	if !isValidOrderStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, "get order for status update", err)
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     req.Status,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The status moved between our read and write.
			writeError(w, http.StatusConflict, "order status changed, please retry")
			return
		}
		writeInternalError(w, "update order status", err)
		return
	}

	h.hub.BroadcastJSON(ws.EventOrderStatus, map[string]string{
		"id":           updated.ID.String(),
		"order_number": updated.OrderNumber,
		"status":       updated.Status,
	})

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// UpdatePaymentStatus handles PATCH /orders/{id}/payment-status (staff only).
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.PaymentStatus {
	case enum.PaymentStatusPending, enum.PaymentStatusPaid, enum.PaymentStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "invalid payment_status")
		return
	}

	updated, err := h.store.UpdatePaymentStatus(r.Context(), database.UpdatePaymentStatusParams{
		ID:            orderID,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, "update payment status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Cancel handles DELETE /orders/{id}. Staff can cancel any open order;
// customers can cancel their own only while it is still "recibido".
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if !enum.IsStaff(claims.Role) {
		current, err := h.store.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			writeInternalError(w, "get order for cancel", err)
			return
		}
		if !canReadOrder(claims.Role, claims.UserID, current) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if current.Status != enum.OrderStatusReceived {
			writeError(w, http.StatusConflict, "order is already being prepared")
			return
		}
	}

	// The SQL enforces the precondition atomically: the update only applies
	// while the order is outside the terminal states.
	cancelled, err := h.store.CancelOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, fetchErr := h.store.GetOrder(r.Context(), orderID)
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeError(w, http.StatusNotFound, "order not found")
					return
				}
				writeInternalError(w, "get order for cancel", fetchErr)
				return
			}
			switch current.Status {
			case enum.OrderStatusDelivered:
				writeError(w, http.StatusConflict, "cannot cancel a delivered order")
			case enum.OrderStatusCancelled:
				writeError(w, http.StatusConflict, "order is already cancelled")
			default:
				writeError(w, http.StatusConflict, "order cannot be cancelled")
			}
			return
		}
		writeInternalError(w, "cancel order", err)
		return
	}

	h.hub.BroadcastJSON(ws.EventOrderCanceled, map[string]string{
		"id":           cancelled.ID.String(),
		"order_number": cancelled.OrderNumber,
	})

	writeJSON(w, http.StatusOK, toOrderResponse(cancelled))
}

// --- Helpers ---

func canReadOrder(role string, userID uuid.UUID, o database.Order) bool {
	if enum.IsStaff(role) {
		return true
	}
	return o.UserID.Valid && uuid.UUID(o.UserID.Bytes) == userID
}

// isCheckoutValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isCheckoutValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrCustomerName) ||
		errors.Is(err, service.ErrCustomerPhone) ||
		errors.Is(err, service.ErrInvalidDeliveryType) ||
		errors.Is(err, service.ErrDeliveryAddress) ||
		errors.Is(err, service.ErrDeliveryZone) ||
		errors.Is(err, service.ErrInvalidZoneID) ||
		errors.Is(err, service.ErrPickupTime) ||
		errors.Is(err, service.ErrInvalidPickupTime) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusReceived, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOnTheWay, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions defines the status machine. Key is current status,
// value is the set of statuses it can move to. Pickup orders skip
// "en_camino" and go straight from "listo" to "entregado".
var allowedTransitions = map[string][]string{
	enum.OrderStatusReceived:  {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusOnTheWay, enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	enum.OrderStatusOnTheWay:  {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
}

func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
