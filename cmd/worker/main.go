package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/univend-backend/internal/analytics/router"
	"github.com/angelmondragon/univend-backend/internal/analytics/writer"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	"github.com/angelmondragon/univend-backend/pkg/bigquery"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/firebase"
	"github.com/angelmondragon/univend-backend/pkg/instance"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/univend-backend/pkg/outbox/registry"
	"github.com/angelmondragon/univend-backend/pkg/pubsub"
	"github.com/angelmondragon/univend-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)
	decoders := registry.NewDefaultDecoderRegistry()

	deps := map[string]pinger{
		"database": dbClient,
		"redis":    redisClient,
		"pubsub":   pubsubClient,
	}

	var push notifications.PushSender
	if cfg.FeatureFlags.PushEnabled {
		app, err := firebase.NewApp(ctx, cfg.GCP, cfg.Firebase)
		requireResource(ctx, logg, "firebase app", err)
		messagingClient, err := app.Messaging(ctx)
		requireResource(ctx, logg, "firebase messaging", err)
		messenger, err := firebase.NewMessenger(messagingClient)
		requireResource(ctx, logg, "firebase messenger", err)
		push = messenger
	}

	notifier, err := notifications.NewNotifier(notifications.NewRepository(dbClient.DB()), push, logg)
	requireResource(ctx, logg, "notifier", err)

	ordersSubscription := pubsubClient.OrdersSubscription()
	if ordersSubscription == nil {
		requireResource(ctx, logg, "orders subscription", errors.New("subscription not configured"))
	}
	notificationsConsumer, err := consumers.NewSubscriber(consumers.SubscriberParams{
		Name:         notifications.ConsumerName,
		Subscription: ordersSubscription,
		Handler:      notifier,
		Idempotency:  manager,
		Decoders:     decoders,
		Logger:       logg,
	})
	requireResource(ctx, logg, "notifications consumer", err)
	running := []consumer{notificationsConsumer}

	if cfg.BigQuery.Enabled {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery client", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "error closing bigquery client", err)
			}
		}()
		deps["bigquery"] = bqClient

		analyticsWriter, err := writer.New(bqClient, writer.Config{MarketplaceTable: cfg.BigQuery.MarketplaceEventsTable})
		requireResource(ctx, logg, "analytics writer", err)
		analyticsRouter, err := router.NewRouter(analyticsWriter, logg, nil)
		requireResource(ctx, logg, "analytics router", err)

		analyticsSubscription := pubsubClient.AnalyticsSubscription()
		if analyticsSubscription == nil {
			requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
		}
		analyticsConsumer, err := consumers.NewSubscriber(consumers.SubscriberParams{
			Name:         router.ConsumerName,
			Subscription: analyticsSubscription,
			Handler:      analyticsRouter,
			Idempotency:  manager,
			Decoders:     decoders,
			Logger:       logg,
		})
		requireResource(ctx, logg, "analytics consumer", err)
		running = append(running, analyticsConsumer)
	}

	service, err := NewService(ServiceParams{
		Logger:       logg,
		Dependencies: deps,
		Consumers:    running,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
