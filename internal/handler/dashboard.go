package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/momentos-dulces/api/internal/enum"
)

// lowStockThreshold is the stock level below which a product counts as
// "low stock" on the dashboard.
const lowStockThreshold = 5

// DashboardStore defines the aggregate queries behind the stats endpoint.
// Satisfied by *database.Queries; narrow interface for testability.
type DashboardStore interface {
	TotalRevenue(ctx context.Context) (pgtype.Numeric, error)
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
	CountUsersByRole(ctx context.Context, role string) (int64, error)
	CountLowStockProducts(ctx context.Context, threshold int32) (int64, error)
}

// DashboardHandler serves the back-office stats summary.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// RegisterRoutes registers the stats endpoint. Mounted staff-only.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/stats", h.Stats)
}

type dashboardStatsResponse struct {
	TotalRevenue     string           `json:"total_revenue"`
	TotalOrders      int64            `json:"total_orders"`
	OrdersByStatus   map[string]int64 `json:"orders_by_status"`
	TotalCustomers   int64            `json:"total_customers"`
	LowStockProducts int64            `json:"low_stock_products"`
}

// Stats returns the aggregate numbers for the back-office dashboard.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.store.TotalRevenue(r.Context())
	if err != nil {
		writeInternalError(w, "total revenue", err)
		return
	}

	totalOrders, err := h.store.CountOrders(r.Context())
	if err != nil {
		writeInternalError(w, "count orders", err)
		return
	}

	byStatus := make(map[string]int64, 6)
	for _, status := range []string{
		enum.OrderStatusReceived, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOnTheWay, enum.OrderStatusDelivered, enum.OrderStatusCancelled,
	} {
		n, err := h.store.CountOrdersByStatus(r.Context(), status)
		if err != nil {
			writeInternalError(w, "count orders by status", err)
			return
		}
		byStatus[status] = n
	}

	customers, err := h.store.CountUsersByRole(r.Context(), enum.UserRoleCustomer)
	if err != nil {
		writeInternalError(w, "count customers", err)
		return
	}

	lowStock, err := h.store.CountLowStockProducts(r.Context(), lowStockThreshold)
	if err != nil {
		writeInternalError(w, "count low stock products", err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{
		TotalRevenue:     numericToString(revenue),
		TotalOrders:      totalOrders,
		OrdersByStatus:   byStatus,
		TotalCustomers:   customers,
		LowStockProducts: lowStock,
	})
}
