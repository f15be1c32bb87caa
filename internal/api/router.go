package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/api/middleware"
	"github.com/example/grocery-sync/internal/auth"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, authn middleware.TokenAuthenticator, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger.Named("http")))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/login", authHandlers.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(authn))

		r.Post("/auth/logout", authHandlers.Logout)
		r.Get("/auth/me", authHandlers.Me)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequirePermission("orders:read")).Group(func(r chi.Router) {
				r.Get("/", handlers.ListOrders)
				r.Get("/statistics", handlers.OrderStatistics)
				r.Get("/{id}", handlers.GetOrder)
			})
			r.With(middleware.RequirePermission("orders:write")).Group(func(r chi.Router) {
				r.Post("/", handlers.CreateOrder)
				r.Patch("/{id}/status", handlers.UpdateOrderStatus)
				r.Patch("/{id}/cancel", handlers.CancelOrder)
				r.Patch("/{id}/assign-delivery", handlers.AssignDelivery)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.RequirePermission("inventory:read")).Group(func(r chi.Router) {
				r.Get("/", handlers.ListProducts)
				r.Get("/categories", handlers.ListCategories)
				r.Get("/{id}", handlers.GetProduct)
			})
			r.With(middleware.RequirePermission("inventory:write")).Group(func(r chi.Router) {
				r.Post("/", handlers.CreateProduct)
				r.Put("/{id}", handlers.UpdateProduct)
				r.Patch("/{id}/stock", handlers.AdjustStock)
			})
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.With(middleware.RequirePermission("deliveries:read")).Group(func(r chi.Router) {
				r.Get("/", handlers.ListDeliveries)
				r.Get("/persons", handlers.ListDrivers)
				r.Get("/{id}", handlers.GetDelivery)
			})
			r.With(middleware.RequirePermission("deliveries:write")).Group(func(r chi.Router) {
				r.Patch("/{id}/status", handlers.UpdateDeliveryStatus)
				r.Post("/{id}/location", handlers.UpdateDriverLocation)
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.RequirePermission("customers:read"))
			r.Get("/", handlers.ListCustomers)
			r.Get("/{id}", handlers.GetCustomer)
			r.Get("/{id}/orders", handlers.CustomerOrders)
		})

		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/system/alerts", handlers.RaiseAlert)
	})

	return r
}
