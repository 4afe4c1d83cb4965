package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/momentos-dulces/api/internal/config"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/enum"
	"github.com/momentos-dulces/api/internal/handler"
	mw "github.com/momentos-dulces/api/internal/middleware"
	"github.com/momentos-dulces/api/internal/rate"
	"github.com/momentos-dulces/api/internal/service"
	"github.com/momentos-dulces/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Routes come in four tiers: public (storefront browsing and checkout),
// authenticated (own account and own orders), staff (order board) and
// admin (catalog and shop management).
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, rateSvc *rate.Service, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestLogger(zap.L()))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	userHandler := handler.NewUserHandler(queries)
	categoryHandler := handler.NewCategoryHandler(queries)
	productHandler := handler.NewProductHandler(queries)
	customizationHandler := handler.NewCustomizationHandler(queries)
	zoneHandler := handler.NewZoneHandler(queries)
	promotionHandler := handler.NewPromotionHandler(queries)
	dashboardHandler := handler.NewDashboardHandler(queries)
	rateHandler := handler.NewExchangeRateHandler(rateSvc)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	// Public routes. Checkout accepts guests, so order creation only gets
	// optional auth: a valid token attaches the order to the account, no
	// token still goes through.
	authHandler.RegisterPublicRoutes(r)
	categoryHandler.RegisterPublicRoutes(r)
	productHandler.RegisterPublicRoutes(r)
	zoneHandler.RegisterPublicRoutes(r)
	promotionHandler.RegisterPublicRoutes(r)
	rateHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuthenticate(cfg.JWTSecret))
		orderHandler.RegisterPublicRoutes(r)
	})

	// WebSocket order feed for the back-office board. Auth happens inside
	// ServeWS via the token query param.
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)
		orderHandler.RegisterProtectedRoutes(r)

		// Staff routes (admin and receptionist)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleReceptionist))
			orderHandler.RegisterStaffRoutes(r)
			dashboardHandler.RegisterRoutes(r)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			userHandler.RegisterRoutes(r)
			categoryHandler.RegisterAdminRoutes(r)
			productHandler.RegisterAdminRoutes(r)
			customizationHandler.RegisterRoutes(r)
			zoneHandler.RegisterAdminRoutes(r)
			promotionHandler.RegisterAdminRoutes(r)
			rateHandler.RegisterAdminRoutes(r)
		})
	})

	return r
}
