package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mhizterpaul/cartlink-backend/internal/complaints"
	"github.com/mhizterpaul/cartlink-backend/internal/cron"
	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/internal/links"
	"github.com/mhizterpaul/cartlink-backend/internal/orders"
	"github.com/mhizterpaul/cartlink-backend/internal/payments"
	"github.com/mhizterpaul/cartlink-backend/internal/wallets"
	"github.com/mhizterpaul/cartlink-backend/pkg/config"
	"github.com/mhizterpaul/cartlink-backend/pkg/db"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	"github.com/mhizterpaul/cartlink-backend/pkg/instance"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
	"github.com/mhizterpaul/cartlink-backend/pkg/metrics"
	"github.com/mhizterpaul/cartlink-backend/pkg/migrate"
	"github.com/mhizterpaul/cartlink-backend/pkg/redis"
)

const lockKeyFormat = "cartlink:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	ordersSvc, err := orders.NewService(
		ordersRepo,
		dbClient,
		stockGuard,
		walletsSvc,
		links.NewTracker(dbClient.DB(), logg),
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	refundJob, err := cron.NewAutoRefundJob(cron.AutoRefundJobParams{
		Logger:      logg,
		StaleReader: ordersRepo,
		Complaints:  complaints.NewRepository(dbClient.DB()),
		Payments:    paymentsSvc,
		Metrics:     metricsCollector,
		RefundAfter: cfg.Settlement.RefundCutoff(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto refund job", err)
		os.Exit(1)
	}

	payoutJob, err := cron.NewAutoPayoutJob(cron.AutoPayoutJobParams{
		Logger:          logg,
		DeliveredReader: ordersRepo,
		Orders:          ordersSvc,
		Metrics:         metricsCollector,
		PayoutAfter:     cfg.Settlement.PayoutCutoff(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto payout job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement lock", err)
		os.Exit(1)
	}

	// Refund runs before payout within each cycle.
	registry := cron.NewRegistry(refundJob, payoutJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Settlement.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting settlement worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
