package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/shopspring/decimal"
)

// fakeTx satisfies pgx.Tx via embedding; only Commit and Rollback are used.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

type fakePool struct {
	tx *fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.tx = &fakeTx{}
	return p.tx, nil
}

type mockOrderStore struct {
	getProduct            func(ctx context.Context, id uuid.UUID) (database.Product, error)
	listVariantsByProduct func(ctx context.Context, productID uuid.UUID) ([]database.ProductVariant, error)
	listOptionsByProduct  func(ctx context.Context, productID uuid.UUID) ([]database.OptionForOrderRow, error)
	getDeliveryZone       func(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error)
	createOrder           func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItem       func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

func (m *mockOrderStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProduct(ctx, id)
}

func (m *mockOrderStore) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductVariant, error) {
	if m.listVariantsByProduct == nil {
		return nil, nil
	}
	return m.listVariantsByProduct(ctx, productID)
}

func (m *mockOrderStore) ListOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]database.OptionForOrderRow, error) {
	if m.listOptionsByProduct == nil {
		return nil, nil
	}
	return m.listOptionsByProduct(ctx, productID)
}

func (m *mockOrderStore) GetDeliveryZone(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error) {
	return m.getDeliveryZone(ctx, id)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrder(ctx, arg)
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItem(ctx, arg)
}

func newService(store *mockOrderStore) (*OrderService, *fakePool) {
	pool := &fakePool{}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return store })
	return svc, pool
}

func validPickupRequest(productID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Maria Perez",
		CustomerPhone: "0414-5551234",
		DeliveryType:  enum.DeliveryTypePickup,
		PickupTime:    "15 minutos",
		PaymentMethod: enum.PaymentMethodCash,
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 2},
		},
	}
}

func TestValidateCheckout(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr error
	}{
		{"valid pickup", func(r *CreateOrderRequest) {}, nil},
		{"missing name", func(r *CreateOrderRequest) { r.CustomerName = "  " }, ErrCustomerName},
		{"missing phone", func(r *CreateOrderRequest) { r.CustomerPhone = "" }, ErrCustomerPhone},
		{"bad delivery type", func(r *CreateOrderRequest) { r.DeliveryType = "drone" }, ErrInvalidDeliveryType},
		{"pickup without time", func(r *CreateOrderRequest) { r.PickupTime = "" }, ErrPickupTime},
		{"pickup with bogus window", func(r *CreateOrderRequest) { r.PickupTime = "45 minutos" }, ErrInvalidPickupTime},
		{"bad payment method", func(r *CreateOrderRequest) { r.PaymentMethod = "trueque" }, ErrInvalidPaymentMethod},
		{"empty cart", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{
			"delivery without address",
			func(r *CreateOrderRequest) {
				r.DeliveryType = enum.DeliveryTypeDelivery
				r.DeliveryZoneID = uuid.NewString()
			},
			ErrDeliveryAddress,
		},
		{
			"delivery without zone",
			func(r *CreateOrderRequest) {
				r.DeliveryType = enum.DeliveryTypeDelivery
				r.DeliveryAddress = "Av. Principal, Edif. Rosa"
			},
			ErrDeliveryZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPickupRequest(productID)
			tt.mutate(&req)
			err := ValidateCheckout(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCheckout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateOrderPickupTotals(t *testing.T) {
	productID := uuid.New()
	product := database.Product{
		ID:        productID,
		Name:      "Torta de chocolate",
		BasePrice: decimalToNumeric(dec("12.50")),
	}

	var gotOrder database.CreateOrderParams
	var gotItems []database.CreateOrderItemParams
	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			if id != productID {
				return database.Product{}, pgx.ErrNoRows
			}
			return product, nil
		},
		createOrder: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			gotOrder = arg
			return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber}, nil
		},
		createOrderItem: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			gotItems = append(gotItems, arg)
			return database.OrderItem{ID: uuid.New()}, nil
		},
	}

	svc, pool := newService(store)
	result, err := svc.CreateOrder(context.Background(), validPickupRequest(productID))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if !pool.tx.committed {
		t.Error("transaction was not committed")
	}
	if n := len(result.Items); n != 1 {
		t.Fatalf("got %d items, want 1", n)
	}

	// 2 × 12.50, no delivery cost for pickup.
	if got := numericToDecimal(gotOrder.Subtotal); !got.Equal(dec("25.00")) {
		t.Errorf("subtotal = %s, want 25.00", got)
	}
	if got := numericToDecimal(gotOrder.DeliveryCost); !got.Equal(decimal.Zero) {
		t.Errorf("delivery cost = %s, want 0", got)
	}
	if got := numericToDecimal(gotOrder.Total); !got.Equal(dec("25.00")) {
		t.Errorf("total = %s, want 25.00", got)
	}
	if gotOrder.DeliveryZoneID.Valid {
		t.Error("pickup order should carry no delivery zone")
	}
	if !gotOrder.PickupTime.Valid || gotOrder.PickupTime.String != "15 minutos" {
		t.Errorf("pickup time = %+v, want 15 minutos", gotOrder.PickupTime)
	}
	if len(gotOrder.OrderNumber) != 8 {
		t.Errorf("order number %q, want 8 characters", gotOrder.OrderNumber)
	}
	if gotItems[0].ProductName != "Torta de chocolate" {
		t.Errorf("product name snapshot = %q", gotItems[0].ProductName)
	}
}

func TestCreateOrderDeliveryAddsZoneCost(t *testing.T) {
	productID := uuid.New()
	zoneID := uuid.New()

	var gotOrder database.CreateOrderParams
	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, Name: "Donas", BasePrice: decimalToNumeric(dec("3.00"))}, nil
		},
		getDeliveryZone: func(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error) {
			if id != zoneID {
				return database.DeliveryZone{}, pgx.ErrNoRows
			}
			return database.DeliveryZone{ID: zoneID, Name: "Zona Norte", Price: decimalToNumeric(dec("4.50"))}, nil
		},
		createOrder: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			gotOrder = arg
			return database.Order{ID: uuid.New()}, nil
		},
		createOrderItem: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{}, nil
		},
	}

	svc, _ := newService(store)
	req := CreateOrderRequest{
		CustomerName:    "Jose Gomez",
		CustomerPhone:   "0424-5559876",
		DeliveryType:    enum.DeliveryTypeDelivery,
		DeliveryAddress: "Calle 5, Casa 12",
		DeliveryZoneID:  zoneID.String(),
		PaymentMethod:   enum.PaymentMethodMobile,
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 3},
		},
	}

	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := numericToDecimal(gotOrder.Subtotal); !got.Equal(dec("9.00")) {
		t.Errorf("subtotal = %s, want 9.00", got)
	}
	if got := numericToDecimal(gotOrder.DeliveryCost); !got.Equal(dec("4.50")) {
		t.Errorf("delivery cost = %s, want 4.50", got)
	}
	if got := numericToDecimal(gotOrder.Total); !got.Equal(dec("13.50")) {
		t.Errorf("total = %s, want 13.50", got)
	}
	if !gotOrder.DeliveryZoneName.Valid || gotOrder.DeliveryZoneName.String != "Zona Norte" {
		t.Errorf("zone name snapshot = %+v, want Zona Norte", gotOrder.DeliveryZoneName)
	}
}

func TestCreateOrderUnknownZone(t *testing.T) {
	productID := uuid.New()
	store := &mockOrderStore{
		getDeliveryZone: func(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error) {
			return database.DeliveryZone{}, pgx.ErrNoRows
		},
	}

	svc, _ := newService(store)
	req := CreateOrderRequest{
		CustomerName:    "Ana",
		CustomerPhone:   "0412-5550000",
		DeliveryType:    enum.DeliveryTypeDelivery,
		DeliveryAddress: "Urb. Los Pinos",
		DeliveryZoneID:  uuid.NewString(),
		PaymentMethod:   enum.PaymentMethodCard,
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	}

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("CreateOrder() error = %v, want ErrZoneNotFound", err)
	}
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{}, pgx.ErrNoRows
		},
	}

	svc, _ := newService(store)
	_, err := svc.CreateOrder(context.Background(), validPickupRequest(uuid.New()))
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("CreateOrder() error = %v, want ErrProductNotFound", err)
	}
}

func TestCreateOrderZeroQuantity(t *testing.T) {
	svc, _ := newService(&mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{}, nil
		},
	})

	req := validPickupRequest(uuid.New())
	req.Items[0].Quantity = 0

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("CreateOrder() error = %v, want ErrInvalidQuantity", err)
	}
}

func TestCreateOrderRetriesOnOrderNumberConflict(t *testing.T) {
	productID := uuid.New()
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}

	attempts := 0
	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, Name: "Suspiros", BasePrice: decimalToNumeric(dec("1.00"))}, nil
		},
		createOrder: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			attempts++
			if attempts < 3 {
				return database.Order{}, conflict
			}
			return database.Order{ID: uuid.New(), OrderNumber: arg.OrderNumber}, nil
		},
		createOrderItem: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{}, nil
		},
	}

	svc, _ := newService(store)
	result, err := svc.CreateOrder(context.Background(), validPickupRequest(productID))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.Order.OrderNumber == "" {
		t.Error("expected order number on success")
	}
}

func TestCreateOrderGivesUpAfterRetries(t *testing.T) {
	productID := uuid.New()
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}

	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, BasePrice: decimalToNumeric(dec("1.00"))}, nil
		},
		createOrder: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{}, conflict
		},
	}

	svc, _ := newService(store)
	_, err := svc.CreateOrder(context.Background(), validPickupRequest(productID))
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Errorf("CreateOrder() error = %v, want unique violation after exhausting retries", err)
	}
}

func TestCreateOrderMalformedVariantDegradesToBase(t *testing.T) {
	productID := uuid.New()

	var gotOrder database.CreateOrderParams
	store := &mockOrderStore{
		getProduct: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			return database.Product{ID: productID, Name: "Quesillo", BasePrice: decimalToNumeric(dec("7.00"))}, nil
		},
		createOrder: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			gotOrder = arg
			return database.Order{ID: uuid.New()}, nil
		},
		createOrderItem: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{}, nil
		},
	}

	svc, _ := newService(store)
	req := validPickupRequest(productID)
	req.Items[0].Quantity = 1
	req.Items[0].VariantID = "not-a-uuid"
	req.Items[0].OptionIDs = []string{"also-not-a-uuid"}

	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got := numericToDecimal(gotOrder.Total); !got.Equal(dec("7.00")) {
		t.Errorf("total = %s, want 7.00 (malformed ids are ignored)", got)
	}
}
