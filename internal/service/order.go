package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrProductNotFound      = errors.New("product not found")
	ErrCustomerName         = errors.New("customer_name is required")
	ErrCustomerPhone        = errors.New("customer_phone is required")
	ErrInvalidDeliveryType  = errors.New("invalid delivery_type")
	ErrDeliveryAddress      = errors.New("delivery_address is required for delivery orders")
	ErrDeliveryZone         = errors.New("delivery_zone is required for delivery orders")
	ErrInvalidZoneID        = errors.New("invalid delivery_zone")
	ErrZoneNotFound         = errors.New("delivery zone not found")
	ErrPickupTime           = errors.New("pickup_time is required for pickup orders")
	ErrInvalidPickupTime    = errors.New("invalid pickup_time")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductVariant, error)
	ListOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]database.OptionForOrderRow, error)
	GetDeliveryZone(ctx context.Context, id uuid.UUID) (database.DeliveryZone, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	UserID          uuid.UUID // uuid.Nil for guest checkout
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryType    string
	DeliveryAddress string
	DeliveryZoneID  string
	PickupTime      string
	PaymentMethod   string
	Notes           string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	ProductID string
	VariantID string
	Quantity  int32
	OptionIDs []string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles checkout business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// ValidateCheckout checks that the request carries everything needed to
// submit an order: customer contact always, address + zone for delivery,
// a pickup window for pickup, a known payment method, a non-empty cart.
func ValidateCheckout(req CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return ErrCustomerName
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return ErrCustomerPhone
	}

	switch req.DeliveryType {
	case enum.DeliveryTypeDelivery:
		if strings.TrimSpace(req.DeliveryAddress) == "" {
			return ErrDeliveryAddress
		}
		if req.DeliveryZoneID == "" {
			return ErrDeliveryZone
		}
	case enum.DeliveryTypePickup:
		if req.PickupTime == "" {
			return ErrPickupTime
		}
		if !enum.IsValidPickupWindow(req.PickupTime) {
			return ErrInvalidPickupTime
		}
	default:
		return ErrInvalidDeliveryType
	}

	switch req.PaymentMethod {
	case enum.PaymentMethodCard, enum.PaymentMethodMobile, enum.PaymentMethodCash:
	default:
		return ErrInvalidPaymentMethod
	}

	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	return nil
}

// CreateOrder validates, prices every line, and creates the order atomically.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (two checkouts can draw the same random number).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := ValidateCheckout(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// newOrderNumber produces the human-facing order reference: the first eight
// hex characters of a random UUID, uppercased.
func newOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// itemSnapshot is the customizations snapshot persisted with each order item
// so later catalog edits never change what a historical order shows.
type itemSnapshot struct {
	Variant *variantSnapshot `json:"variant,omitempty"`
	Options []optionSnapshot `json:"options,omitempty"`
}

type variantSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
}

type optionSnapshot struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PriceModifier string    `json:"price_modifier"`
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve delivery costing ---
	deliveryCost := decimal.Zero
	zoneID := pgtype.UUID{}
	zoneName := pgtype.Text{}
	if req.DeliveryType == enum.DeliveryTypeDelivery {
		zid, err := uuid.Parse(req.DeliveryZoneID)
		if err != nil {
			return nil, ErrInvalidZoneID
		}
		zone, err := store.GetDeliveryZone(ctx, zid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrZoneNotFound
			}
			return nil, fmt.Errorf("get delivery zone: %w", err)
		}
		deliveryCost = numericToDecimal(zone.Price)
		zoneID = pgtype.UUID{Bytes: zone.ID, Valid: true}
		// Snapshot name and cost: zone edits must not change old orders.
		zoneName = pgtype.Text{String: zone.Name, Valid: true}
	}

	// --- Price items ---
	subtotal := decimal.Zero
	var itemParams []database.CreateOrderItemParams

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}

		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}

		variants, err := store.ListVariantsByProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: list variants: %w", i, err)
		}
		options, err := store.ListOptionsByProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: list options: %w", i, err)
		}

		priced := PricedProduct{BasePrice: numericToDecimal(product.BasePrice)}
		for _, v := range variants {
			priced.Variants = append(priced.Variants, PricedVariant{
				ID:    v.ID,
				Name:  v.Name,
				Price: numericToDecimal(v.Price),
			})
		}
		for _, o := range options {
			priced.Options = append(priced.Options, PricedOption{
				ID:            o.ID,
				GroupID:       o.CustomizationID,
				GroupType:     o.CustomizationType,
				Name:          o.Name,
				PriceModifier: numericToDecimal(o.PriceModifier),
			})
		}

		// Malformed variant/option ids degrade to "no modifier", they are
		// never a checkout failure.
		sel := Selection{}
		if vid, err := uuid.Parse(item.VariantID); err == nil {
			sel.VariantID = vid
		}
		for _, raw := range item.OptionIDs {
			if oid, err := uuid.Parse(raw); err == nil {
				sel.OptionIDs = append(sel.OptionIDs, oid)
			}
		}

		unitPrice := UnitPrice(priced, sel)
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineTotal)

		snapshot, err := json.Marshal(buildSnapshot(priced, sel))
		if err != nil {
			return nil, fmt.Errorf("items[%d]: marshal customizations: %w", i, err)
		}

		itemParams = append(itemParams, database.CreateOrderItemParams{
			ProductID:      pgtype.UUID{Bytes: product.ID, Valid: true},
			ProductName:    product.Name,
			ProductImage:   product.ImageUrl,
			Quantity:       item.Quantity,
			UnitPrice:      decimalToNumeric(unitPrice),
			TotalPrice:     decimalToNumeric(lineTotal),
			Customizations: snapshot,
		})
	}

	total := subtotal.Add(deliveryCost)

	// --- Build order params ---
	userID := pgtype.UUID{}
	if req.UserID != uuid.Nil {
		userID = pgtype.UUID{Bytes: req.UserID, Valid: true}
	}

	address := pgtype.Text{}
	if req.DeliveryType == enum.DeliveryTypeDelivery {
		address = pgtype.Text{String: req.DeliveryAddress, Valid: true}
	}

	pickupTime := pgtype.Text{}
	if req.DeliveryType == enum.DeliveryTypePickup {
		pickupTime = pgtype.Text{String: req.PickupTime, Valid: true}
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:      newOrderNumber(),
		UserID:           userID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Subtotal:         decimalToNumeric(subtotal),
		DeliveryCost:     decimalToNumeric(deliveryCost),
		Total:            decimalToNumeric(total),
		DeliveryType:     req.DeliveryType,
		DeliveryAddress:  address,
		DeliveryZoneID:   zoneID,
		DeliveryZoneName: zoneName,
		PickupTime:       pickupTime,
		PaymentMethod:    req.PaymentMethod,
		Notes:            notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, params := range itemParams {
		params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// buildSnapshot records the resolved variant and options for an order item.
func buildSnapshot(p PricedProduct, sel Selection) itemSnapshot {
	var snap itemSnapshot

	if sel.VariantID != uuid.Nil {
		for _, v := range p.Variants {
			if v.ID == sel.VariantID {
				snap.Variant = &variantSnapshot{
					ID:    v.ID,
					Name:  v.Name,
					Price: v.Price.StringFixed(2),
				}
				break
			}
		}
	}

	selected := make(map[uuid.UUID]bool, len(sel.OptionIDs))
	for _, id := range sel.OptionIDs {
		selected[id] = true
	}
	applied := make(map[uuid.UUID]bool)
	for _, o := range p.Options {
		if !selected[o.ID] {
			continue
		}
		if o.GroupType != enum.CustomizationTypeTopping && applied[o.GroupID] {
			continue
		}
		snap.Options = append(snap.Options, optionSnapshot{
			ID:            o.ID,
			Name:          o.Name,
			PriceModifier: o.PriceModifier.StringFixed(2),
		})
		applied[o.GroupID] = true
	}

	return snap
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
