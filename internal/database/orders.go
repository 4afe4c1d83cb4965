package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, user_id, customer_name, customer_email, customer_phone,
	subtotal, delivery_cost, total, status, delivery_type, delivery_address,
	delivery_zone_id, delivery_zone_name, pickup_time, payment_method, payment_status,
	notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.Subtotal, &o.DeliveryCost, &o.Total, &o.Status,
		&o.DeliveryType, &o.DeliveryAddress, &o.DeliveryZoneID, &o.DeliveryZoneName,
		&o.PickupTime, &o.PaymentMethod, &o.PaymentStatus, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber      string
	UserID           pgtype.UUID
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Subtotal         pgtype.Numeric
	DeliveryCost     pgtype.Numeric
	Total            pgtype.Numeric
	DeliveryType     string
	DeliveryAddress  pgtype.Text
	DeliveryZoneID   pgtype.UUID
	DeliveryZoneName pgtype.Text
	PickupTime       pgtype.Text
	PaymentMethod    string
	Notes            pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, customer_name, customer_email,
			customer_phone, subtotal, delivery_cost, total, delivery_type,
			delivery_address, delivery_zone_id, delivery_zone_name, pickup_time,
			payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+orderColumns,
		arg.OrderNumber, arg.UserID, arg.CustomerName, arg.CustomerEmail,
		arg.CustomerPhone, arg.Subtotal, arg.DeliveryCost, arg.Total,
		arg.DeliveryType, arg.DeliveryAddress, arg.DeliveryZoneID,
		arg.DeliveryZoneName, arg.PickupTime, arg.PaymentMethod, arg.Notes)
	return scanOrder(row)
}

const orderItemColumns = `id, order_id, product_id, product_name, product_image,
	quantity, unit_price, total_price, customizations`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.ProductImage, &it.Quantity, &it.UnitPrice, &it.TotalPrice,
		&it.Customizations)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	ProductID      pgtype.UUID
	ProductName    string
	ProductImage   pgtype.Text
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	Customizations []byte
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, product_image,
			quantity, unit_price, total_price, customizations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.ProductImage,
		arg.Quantity, arg.UnitPrice, arg.TotalPrice, arg.Customizations)
	return scanOrderItem(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1`, id)
	return scanOrder(row)
}

type ListOrdersParams struct {
	UserID     pgtype.UUID
	Status     pgtype.Text
	ActiveOnly pgtype.Bool
	Limit      int32
	Offset     int32
}

// ListOrders applies the optional filters: owner, exact status, and the
// active/completed split (active = status outside the terminal states).
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::bool IS NULL OR
		       (status NOT IN ('entregado', 'cancelado')) = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		arg.UserID, arg.Status, arg.ActiveOnly, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderItemColumns+` FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus only applies if the order is still in PrevStatus, so a
// concurrent transition surfaces as ErrNoRows instead of a silent overwrite.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PrevStatus)
	return scanOrder(row)
}

type UpdatePaymentStatusParams struct {
	ID            uuid.UUID
	PaymentStatus string
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET payment_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.PaymentStatus)
	return scanOrder(row)
}

// CancelOrder enforces the precondition atomically: it only applies while the
// order has not reached a terminal state.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'cancelado', updated_at = now()
		WHERE id = $1 AND status NOT IN ('entregado', 'cancelado')
		RETURNING `+orderColumns, id)
	return scanOrder(row)
}

// --- Dashboard aggregates ---

func (q *Queries) TotalRevenue(ctx context.Context) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(sum(total), 0) FROM orders
		WHERE status <> 'cancelado'`).Scan(&total)
	return total, err
}

func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	return n, err
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM orders WHERE status = $1`, status).Scan(&n)
	return n, err
}
