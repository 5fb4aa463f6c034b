package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/florelink/florelink-backend/api/routes"
	"github.com/florelink/florelink-backend/internal/catalog"
	"github.com/florelink/florelink-backend/internal/orders"
	"github.com/florelink/florelink-backend/internal/payments"
	"github.com/florelink/florelink-backend/pkg/config"
	"github.com/florelink/florelink-backend/pkg/db"
	"github.com/florelink/florelink-backend/pkg/enums"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/metrics"
	"github.com/florelink/florelink-backend/pkg/migrate"
	"github.com/florelink/florelink-backend/pkg/outbox"
	"github.com/florelink/florelink-backend/pkg/payu"
	"github.com/florelink/florelink-backend/pkg/redis"
	"github.com/florelink/florelink-backend/pkg/stripe"
)

const catalogCacheTTL = time.Minute

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
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
	providerMetrics := metrics.NewProviderMetrics(registry)

	provider, err := buildCardProvider(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create card payment provider", err)
		os.Exit(1)
	}

	hosted, err := buildHostedCheckout(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create hosted checkout client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogReader := catalog.NewCachedReader(
		catalog.NewRepository(dbClient.DB()),
		redisClient,
		catalogCacheTTL,
		logg,
	)

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		catalogReader,
		dbClient,
		outboxService,
		orders.CheckoutPolicy{
			FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
			ShippingFee:           cfg.Checkout.ShippingFee,
			TaxRate:               cfg.Checkout.TaxRate,
			Currency:              enums.Currency(cfg.Checkout.Currency),
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		provider,
		hosted,
		cfg.PayU,
		cfg.Provider,
		providerMetrics,
		logg,
	)
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
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Orders:     ordersService,
			Payments:   paymentsService,
			Registry:   registry,
			Idempotent: redisClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildCardProvider(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Provider, error) {
	if cfg.Stripe.APIKey == "" {
		logg.Warn(ctx, "stripe api key not set, using simulated card provider")
		return payments.NewSimulatedProvider(), nil
	}
	client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, err
	}
	return payments.NewStripeProvider(client)
}

func buildHostedCheckout(cfg *config.Config, logg *logger.Logger) (payments.HostedCheckout, error) {
	if cfg.PayU.PosID == "" {
		logg.Warn(context.Background(), "payu not configured, hosted checkout disabled")
		return nil, nil
	}
	return payu.NewClient(cfg.PayU)
}
