package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/auth"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/momentos-dulces/api/internal/middleware"
	"github.com/momentos-dulces/api/internal/service"
)

type mockOrderService struct {
	createOrder func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createOrder(ctx, req)
}

type mockOrderStore struct {
	getOrder              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrders            func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrder func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	updateOrderStatus     func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updatePaymentStatus   func(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error)
	cancelOrder           func(ctx context.Context, id uuid.UUID) (database.Order, error)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrder(ctx, id)
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrders(ctx, arg)
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrder == nil {
		return nil, nil
	}
	return m.listOrderItemsByOrder(ctx, orderID)
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatus(ctx, arg)
}

func (m *mockOrderStore) UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error) {
	return m.updatePaymentStatus(ctx, arg)
}

func (m *mockOrderStore) CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.cancelOrder(ctx, id)
}

type mockBroadcaster struct {
	events []string
}

func (m *mockBroadcaster) BroadcastJSON(eventType string, payload any) {
	m.events = append(m.events, eventType)
}

func staffContext(ctx context.Context, role string) context.Context {
	return middleware.WithClaims(ctx, &auth.Claims{UserID: uuid.New(), Role: role})
}

func customerContext(ctx context.Context, userID uuid.UUID) context.Context {
	return middleware.WithClaims(ctx, &auth.Claims{UserID: userID, Role: enum.UserRoleCustomer})
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func numericFromString(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("numeric scan %q: %v", s, err)
	}
	return n
}

func TestCreateOrderBroadcastsAndReturns201(t *testing.T) {
	orderID := uuid.New()
	svc := &mockOrderService{
		createOrder: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return &service.CreateOrderResult{
				Order: database.Order{
					ID:            orderID,
					OrderNumber:   "A1B2C3D4",
					Status:        enum.OrderStatusReceived,
					PaymentStatus: enum.PaymentStatusPending,
				},
			}, nil
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(svc, &mockOrderStore{}, hub)

	body, _ := json.Marshal(createOrderRequest{
		CustomerName:  "Maria",
		CustomerPhone: "0414-5551234",
		DeliveryType:  enum.DeliveryTypePickup,
		PickupTime:    "15 minutos",
		PaymentMethod: enum.PaymentMethodCash,
		Items:         []createOrderItemRequest{{ProductID: uuid.NewString(), Quantity: 1}},
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 1 || hub.events[0] != "order_created" {
		t.Errorf("broadcast events = %v, want [order_created]", hub.events)
	}

	var resp orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.OrderNumber != "A1B2C3D4" {
		t.Errorf("order_number = %q", resp.OrderNumber)
	}
}

func TestCreateOrderValidationErrorIs400(t *testing.T) {
	svc := &mockOrderService{
		createOrder: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrPickupTime
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(svc, &mockOrderStore{}, hub)

	body, _ := json.Marshal(createOrderRequest{DeliveryType: enum.DeliveryTypePickup})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(hub.events) != 0 {
		t.Errorf("no broadcast expected on failure, got %v", hub.events)
	}
}

func TestListOrdersCustomerScopedToOwn(t *testing.T) {
	userID := uuid.New()
	var gotParams database.ListOrdersParams
	store := &mockOrderStore{
		listOrders: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			gotParams = arg
			return nil, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = req.WithContext(customerContext(req.Context(), userID))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotParams.UserID.Valid || uuid.UUID(gotParams.UserID.Bytes) != userID {
		t.Error("customer listing must be filtered to their own orders")
	}
}

func TestListOrdersStaffSeesAllWithFilters(t *testing.T) {
	var gotParams database.ListOrdersParams
	store := &mockOrderStore{
		listOrders: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			gotParams = arg
			return nil, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	req := httptest.NewRequest(http.MethodGet, "/orders?status=listo&view=active&limit=500", nil)
	req = req.WithContext(staffContext(req.Context(), enum.UserRoleReceptionist))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotParams.UserID.Valid {
		t.Error("staff listing must not be user-scoped")
	}
	if !gotParams.Status.Valid || gotParams.Status.String != enum.OrderStatusReady {
		t.Errorf("status filter = %+v", gotParams.Status)
	}
	if !gotParams.ActiveOnly.Valid || !gotParams.ActiveOnly.Bool {
		t.Errorf("active filter = %+v", gotParams.ActiveOnly)
	}
	if gotParams.Limit != 100 {
		t.Errorf("limit = %d, want capped at 100", gotParams.Limit)
	}
}

func TestGetOrderHidesOthersOrdersFromCustomers(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{
				ID:     orderID,
				UserID: pgtype.UUID{Bytes: owner, Valid: true},
				Status: enum.OrderStatusReceived,
			}, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	req = withURLParam(req, "id", orderID.String())
	req = req.WithContext(customerContext(req.Context(), stranger))
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for someone else's order", rec.Code)
	}
}

func TestUpdateStatusValidTransition(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusReceived}, nil
		},
		updateOrderStatus: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			if arg.PrevStatus != enum.OrderStatusReceived {
				t.Errorf("prev status = %q, want recibido", arg.PrevStatus)
			}
			return database.Order{ID: orderID, OrderNumber: "FFAA0011", Status: arg.Status}, nil
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(&mockOrderService{}, store, hub)

	body, _ := json.Marshal(updateStatusRequest{Status: enum.OrderStatusPreparing})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", bytes.NewReader(body))
	req = withURLParam(req, "id", orderID.String())
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 1 || hub.events[0] != "order_status" {
		t.Errorf("broadcast events = %v, want [order_status]", hub.events)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusDelivered}, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	body, _ := json.Marshal(updateStatusRequest{Status: enum.OrderStatusPreparing})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", bytes.NewReader(body))
	req = withURLParam(req, "id", orderID.String())
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for transition out of a terminal state", rec.Code)
	}
}

func TestUpdateStatusConcurrentChangeIs409(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusReady}, nil
		},
		updateOrderStatus: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			// Someone else moved the order between our read and write.
			return database.Order{}, pgx.ErrNoRows
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	body, _ := json.Marshal(updateStatusRequest{Status: enum.OrderStatusOnTheWay})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", bytes.NewReader(body))
	req = withURLParam(req, "id", orderID.String())
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 on lost update", rec.Code)
	}
}

func TestCancelDeliveredOrderIs409(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderStore{
		cancelOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: enum.OrderStatusDelivered}, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+orderID.String(), nil)
	req = withURLParam(req, "id", orderID.String())
	req = req.WithContext(staffContext(req.Context(), enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCustomerCannotCancelOrderInPreparation(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{
				ID:     orderID,
				UserID: pgtype.UUID{Bytes: userID, Valid: true},
				Status: enum.OrderStatusPreparing,
			}, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+orderID.String(), nil)
	req = withURLParam(req, "id", orderID.String())
	req = req.WithContext(customerContext(req.Context(), userID))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 once preparation started", rec.Code)
	}
}

func TestCustomerCancelsOwnReceivedOrder(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	store := &mockOrderStore{
		getOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{
				ID:     orderID,
				UserID: pgtype.UUID{Bytes: userID, Valid: true},
				Status: enum.OrderStatusReceived,
			}, nil
		},
		cancelOrder: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, OrderNumber: "00FF11AA", Status: enum.OrderStatusCancelled}, nil
		},
	}
	hub := &mockBroadcaster{}
	h := NewOrderHandler(&mockOrderService{}, store, hub)

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+orderID.String(), nil)
	req = withURLParam(req, "id", orderID.String())
	req = req.WithContext(customerContext(req.Context(), userID))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 1 || hub.events[0] != "order_canceled" {
		t.Errorf("broadcast events = %v, want [order_canceled]", hub.events)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderStore{
		updatePaymentStatus: func(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Order, error) {
			return database.Order{
				ID:            orderID,
				PaymentStatus: arg.PaymentStatus,
				Total:         numericFromString(t, "25.00"),
			}, nil
		},
	}
	h := NewOrderHandler(&mockOrderService{}, store, &mockBroadcaster{})

	body, _ := json.Marshal(updatePaymentStatusRequest{PaymentStatus: enum.PaymentStatusPaid})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/payment-status", bytes.NewReader(body))
	req = withURLParam(req, "id", orderID.String())
	rec := httptest.NewRecorder()
	h.UpdatePaymentStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("payment_status = %q, want pagado", resp.PaymentStatus)
	}
	if resp.Total != "25.00" {
		t.Errorf("total = %q, want 25.00", resp.Total)
	}
}

func TestUpdatePaymentStatusRejectsUnknownValue(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{}, &mockOrderStore{}, &mockBroadcaster{})

	body, _ := json.Marshal(updatePaymentStatusRequest{PaymentStatus: "reembolsado"})
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+uuid.NewString()+"/payment-status", bytes.NewReader(body))
	req = withURLParam(req, "id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.UpdatePaymentStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
