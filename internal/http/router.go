package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/http/handlers"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/shop"
)

type Deps struct {
	Logger  *slog.Logger
	Cfg     config.Config
	Metrics *metrics.Metrics

	Sessions *session.Resolver
	Shop     *shop.Session
	Catalog  *clients.CatalogClient
	Orders   *clients.OrderClient

	HealthProbes []clients.HealthProbe
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares (outer -> inner)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Recover(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderCorrelationID},
		ExposedHeaders:   []string{middleware.HeaderCorrelationID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health
	health := &handlers.HealthHandler{Probes: d.HealthProbes}
	r.Get("/health", health.Service)
	r.Get("/health/upstreams", health.Upstreams)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	sess := handlers.NewSessionHandler(d.Sessions, d.Shop, d.Logger)
	r.Put("/session", sess.Login)
	r.Delete("/session", sess.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(d.Sessions))

		cat := handlers.NewCatalogHandler(d.Catalog, d.Logger)
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", cat.Categories)
			r.Get("/categories/{id}/subcategories", cat.SubCategories)
			r.Get("/subcategories/{id}/products", cat.Products)
		})

		c := handlers.NewCartHandler(d.Shop, d.Logger)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", c.Get)
			r.Delete("/", c.Clear)
			r.Post("/refresh", c.Refresh)
			r.Post("/items", c.AddItem)
			r.Patch("/lines/{lineId}", c.ChangeQuantity)
		})

		co := handlers.NewCheckoutHandler(d.Shop, d.Logger)
		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", co.Get)
			r.Post("/", co.Restart)
			r.Post("/address-picker", co.OpenAddressPicker)
			r.Delete("/address-picker", co.CancelAddressPicker)
			r.Put("/address", co.SelectAddress)
			r.Put("/payment", co.SelectPayment)
			r.Post("/confirm", co.Confirm)
		})
		r.Get("/tracking", co.Tracking)
		r.Delete("/tracking", co.CloseTracking)

		ord := handlers.NewOrderHandler(d.Orders, d.Logger)
		r.Get("/orders", ord.List)
		r.Get("/orders/{orderId}", ord.Get)
	})

	return r
}
