package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bazaarline/storefront-backend/api/routes"
	"github.com/bazaarline/storefront-backend/internal/addresses"
	"github.com/bazaarline/storefront-backend/internal/catalog"
	checkoutsvc "github.com/bazaarline/storefront-backend/internal/checkout"
	"github.com/bazaarline/storefront-backend/internal/fees"
	"github.com/bazaarline/storefront-backend/internal/giftcards"
	"github.com/bazaarline/storefront-backend/internal/inventory"
	"github.com/bazaarline/storefront-backend/internal/notifications"
	ordersvc "github.com/bazaarline/storefront-backend/internal/orders"
	"github.com/bazaarline/storefront-backend/internal/paymentmethods"
	paymentsvc "github.com/bazaarline/storefront-backend/internal/payments"
	"github.com/bazaarline/storefront-backend/pkg/config"
	"github.com/bazaarline/storefront-backend/pkg/db"
	"github.com/bazaarline/storefront-backend/pkg/logger"
	"github.com/bazaarline/storefront-backend/pkg/metrics"
	"github.com/bazaarline/storefront-backend/pkg/migrate"
	pkgredis "github.com/bazaarline/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	ordersRepo := ordersvc.NewRepository(gormDB)
	paymentsRepo := paymentsvc.NewRepository(gormDB)
	stockRepo := inventory.NewRepository(gormDB)
	cardsRepo := giftcards.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	addressesRepo := addresses.NewRepository(gormDB)
	methodsRepo := paymentmethods.NewRepository(gormDB)

	notifier := notifications.NewLogNotifier(logg)
	calculator := fees.NewCalculator(fees.PolicyFromConfig(cfg.Checkout))

	ordersService, err := ordersvc.NewService(ordersRepo, dbClient, notifier)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Orders:     ordersRepo,
		Payments:   paymentsRepo,
		Stock:      stockRepo,
		GiftCards:  cardsRepo,
		Catalog:    catalogRepo,
		Addresses:  addressesRepo,
		Methods:    methodsRepo,
		Calculator: calculator,
		Tx:         dbClient,
		Notifier:   notifier,
		Metrics:    checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Orders:    ordersRepo,
		Payments:  paymentsRepo,
		Stock:     stockRepo,
		GiftCards: cardsRepo,
		Tx:        dbClient,
		Notifier:  notifier,
		Metrics:   checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Gatherer:    registry,
			HTTPMetrics: httpMetrics,
			Checkout:    checkoutService,
			Orders:      ordersService,
			Payments:    paymentsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
