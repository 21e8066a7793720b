package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mhizterpaul/cartlink-backend/api/routes"
	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/internal/links"
	"github.com/mhizterpaul/cartlink-backend/internal/orders"
	"github.com/mhizterpaul/cartlink-backend/internal/payments"
	"github.com/mhizterpaul/cartlink-backend/internal/wallets"
	"github.com/mhizterpaul/cartlink-backend/pkg/config"
	"github.com/mhizterpaul/cartlink-backend/pkg/db"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
	"github.com/mhizterpaul/cartlink-backend/pkg/migrate"
	"github.com/mhizterpaul/cartlink-backend/pkg/redis"
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

	currency, err := enums.ParseCurrency(cfg.Gateway.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid default currency", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	stockGuard := inventory.NewGuard()

	walletsSvc, err := wallets.NewService(wallets.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	linkTracker := links.NewTracker(dbClient.DB(), logg)

	ordersSvc, err := orders.NewService(
		ordersRepo,
		dbClient,
		stockGuard,
		walletsSvc,
		linkTracker,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		stockGuard,
		dbClient,
		logg,
		currency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, paymentsSvc, linkTracker),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
