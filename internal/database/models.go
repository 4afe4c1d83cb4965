package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Phone          pgtype.Text
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Product struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	BasePrice   pgtype.Numeric
	Stock       int32
	Discount    int32
	IsCombo     bool
	Unit        pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductVariant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Unit      pgtype.Text
	IsActive  bool
}

type ProductCustomization struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	Name              string
	CustomizationType string
}

type CustomizationOption struct {
	ID              uuid.UUID
	CustomizationID uuid.UUID
	Name            string
	PriceModifier   pgtype.Numeric
}

// OptionForOrderRow is a customization option joined with its group's type,
// used by the pricing engine.
type OptionForOrderRow struct {
	ID                uuid.UUID
	CustomizationID   uuid.UUID
	CustomizationType string
	Name              string
	PriceModifier     pgtype.Numeric
}

type DeliveryZone struct {
	ID            uuid.UUID
	Name          string
	Price         pgtype.Numeric
	EstimatedTime string
	IsActive      bool
}

type Order struct {
	ID               uuid.UUID
	OrderNumber      string
	UserID           pgtype.UUID
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Subtotal         pgtype.Numeric
	DeliveryCost     pgtype.Numeric
	Total            pgtype.Numeric
	Status           string
	DeliveryType     string
	DeliveryAddress  pgtype.Text
	DeliveryZoneID   pgtype.UUID
	DeliveryZoneName pgtype.Text
	PickupTime       pgtype.Text
	PaymentMethod    string
	PaymentStatus    string
	Notes            pgtype.Text
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      pgtype.UUID
	ProductName    string
	ProductImage   pgtype.Text
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	Customizations []byte
}

type Promotion struct {
	ID            uuid.UUID
	Name          string
	Description   string
	DiscountType  string
	DiscountValue pgtype.Numeric
	Code          pgtype.Text
	ValidFrom     time.Time
	ValidUntil    time.Time
	MinPurchase   pgtype.Numeric
	IsActive      bool
	CreatedAt     time.Time
}

type ExchangeRate struct {
	ID        uuid.UUID
	UsdToBs   pgtype.Numeric
	UpdatedAt time.Time
	UpdatedBy pgtype.UUID
}
