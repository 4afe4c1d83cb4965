package enum

// Order lifecycle and payment states. These mirror CHECK constraints in the
// schema; the Spanish values are part of the public API contract.

const (
	OrderStatusReceived  = "recibido"
	OrderStatusPreparing = "en_preparacion"
	OrderStatusReady     = "listo"
	OrderStatusOnTheWay  = "en_camino"
	OrderStatusDelivered = "entregado"
	OrderStatusCancelled = "cancelado"
)

const (
	PaymentStatusPending = "pendiente"
	PaymentStatusPaid    = "pagado"
	PaymentStatusFailed  = "fallido"
)

const (
	UserRoleCustomer     = "usuario"
	UserRoleReceptionist = "recepcionista"
	UserRoleAdmin        = "admin"
)

const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

const (
	PaymentMethodCard   = "tarjeta"
	PaymentMethodMobile = "pago_movil"
	PaymentMethodCash   = "efectivo"
)

const (
	CustomizationTypeSize      = "size"
	CustomizationTypeTopping   = "topping"
	CustomizationTypeFilling   = "filling"
	CustomizationTypeGlaze     = "glaze"
	CustomizationTypeDoughType = "doughType"
	CustomizationTypePortion   = "portion"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// PickupWindows are the wait-time options offered at checkout for in-store pickup.
var PickupWindows = []string{
	"5 minutos",
	"10 minutos",
	"15 minutos",
	"20 minutos",
	"30 minutos",
}

// IsValidPickupWindow reports whether s is one of the offered pickup windows.
func IsValidPickupWindow(s string) bool {
	for _, w := range PickupWindows {
		if w == s {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role can manage orders (status transitions,
// full order listing).
func IsStaff(role string) bool {
	return role == UserRoleAdmin || role == UserRoleReceptionist
}
