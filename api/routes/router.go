package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarline/storefront-backend/api/controllers"
	"github.com/bazaarline/storefront-backend/api/middleware"
	checkoutsvc "github.com/bazaarline/storefront-backend/internal/checkout"
	ordersvc "github.com/bazaarline/storefront-backend/internal/orders"
	paymentsvc "github.com/bazaarline/storefront-backend/internal/payments"
	"github.com/bazaarline/storefront-backend/pkg/config"
	"github.com/bazaarline/storefront-backend/pkg/db"
	"github.com/bazaarline/storefront-backend/pkg/logger"
	"github.com/bazaarline/storefront-backend/pkg/metrics"
	pkgredis "github.com/bazaarline/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *pkgredis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Checkout    checkoutsvc.Service
	Orders      ordersvc.Service
	Payments    paymentsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/checkout/quote", controllers.CheckoutQuote(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersDetail(deps.Orders, logg))
			r.Post("/{orderId}/payment/confirm", controllers.PaymentConfirm(deps.Payments, logg))
			r.Post("/{orderId}/payment/fail", controllers.PaymentFail(deps.Payments, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/ping", controllers.AdminPing())
			r.Post("/orders/{orderId}/status", controllers.AdminSetOrderStatus(deps.Orders, logg))
		})
	})

	return r
}
