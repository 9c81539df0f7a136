package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/univend-backend/internal/cron"
	"github.com/angelmondragon/univend-backend/internal/lifecycle"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	"github.com/angelmondragon/univend-backend/internal/orders"
	product "github.com/angelmondragon/univend-backend/internal/products"
	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/instance"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/metrics"
	"github.com/angelmondragon/univend-backend/pkg/migrate"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": serviceKind,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	jobs, err := buildJobs(cfg, dbClient, logg)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// lockName scopes the single-runner lease per environment so staging and
// prod sharing one Redis never block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceKind + ":" + env
}

func closeWithLog(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}

func buildJobs(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) ([]cron.Job, error) {
	engine, err := buildLifecycle(cfg, dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("lifecycle engine: %w", err)
	}
	confirmation, err := cron.NewOrderConfirmationTTLJob(cron.OrderConfirmationTTLJobParams{
		Logger:    logg,
		Orders:    orders.NewRepository(dbClient.DB()),
		Lifecycle: engine,
		TTL:       cfg.Cron.OrderConfirmationTTL,
		BatchSize: cfg.Cron.StaleOrderBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("order confirmation job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Repository:    notifications.NewRepository(dbClient.DB()),
		ReadRetention: cfg.Cron.ReadNotificationRetention,
		Retention:     cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return []cron.Job{confirmation, retention, cleanup}, nil
}

// buildLifecycle wires the engine the same way the API does so expiries go
// through the identical guards, refunds and outbox events.
func buildLifecycle(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (lifecycle.Service, error) {
	runner, err := transition.NewRunner(dbClient, logg, metrics.NewTransitionMetrics(prometheus.DefaultRegisterer), transition.Options{
		MaxConflictRetries: cfg.Lifecycle.MaxConflictRetries,
		BaseDelay:          cfg.Lifecycle.RetryBaseDelay,
	})
	if err != nil {
		return nil, err
	}
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	wallets, err := wallet.NewService(wallet.ServiceParams{
		Repository:      wallet.NewRepository(dbClient.DB()),
		Runner:          runner,
		Outbox:          emitter,
		StartingBalance: cfg.Wallet.StartingBalance,
	})
	if err != nil {
		return nil, err
	}
	products, err := product.NewService(product.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	return lifecycle.NewService(lifecycle.ServiceParams{
		Runner:   runner,
		Orders:   orders.NewRepository(dbClient.DB()),
		Products: products,
		Wallets:  wallets,
		Outbox:   emitter,
		Logger:   logg,
	})
}
