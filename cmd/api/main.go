package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/univend-backend/api/controllers"
	"github.com/angelmondragon/univend-backend/api/routes"
	"github.com/angelmondragon/univend-backend/internal/chat"
	"github.com/angelmondragon/univend-backend/internal/lifecycle"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	"github.com/angelmondragon/univend-backend/internal/orders"
	product "github.com/angelmondragon/univend-backend/internal/products"
	"github.com/angelmondragon/univend-backend/internal/reviews"
	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/firebase"
	"github.com/angelmondragon/univend-backend/pkg/instance"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/metrics"
	"github.com/angelmondragon/univend-backend/pkg/migrate"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/redis"
)

const (
	serviceKind       = "api"
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
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

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}
	deps, err := buildServices(cfg, dbClient, logg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Verifier = verifier
	deps.Idempotency = redisClient
	deps.Gatherer = prometheus.DefaultGatherer
	deps.Readiness = map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	// Cloud Run injects PORT and it wins over config.
	port := cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"instance":      instance.GetID(),
		"addr":          server.Addr,
		"auth_provider": cfg.Auth.Provider,
	})
	return serve(ctx, logg, server)
}

// serve blocks until the listener fails or ctx ends, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func closeWithLog(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}

func buildVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Auth.Provider)) {
	case config.AuthProviderFirebase:
		app, err := firebase.NewApp(ctx, cfg.GCP, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		tokens, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return firebase.NewVerifier(tokens)
	default:
		return auth.NewJWTVerifier(cfg.Auth)
	}
}

func buildServices(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (routes.Dependencies, error) {
	var deps routes.Dependencies

	runner, err := transition.NewRunner(dbClient, logg, metrics.NewTransitionMetrics(prometheus.DefaultRegisterer), transition.Options{
		MaxConflictRetries: cfg.Lifecycle.MaxConflictRetries,
		BaseDelay:          cfg.Lifecycle.RetryBaseDelay,
	})
	if err != nil {
		return deps, err
	}
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	wallets, err := wallet.NewService(wallet.ServiceParams{
		Repository:      wallet.NewRepository(dbClient.DB()),
		Runner:          runner,
		Outbox:          emitter,
		StartingBalance: cfg.Wallet.StartingBalance,
	})
	if err != nil {
		return deps, err
	}

	products, err := product.NewService(product.NewRepository(dbClient.DB()))
	if err != nil {
		return deps, err
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderReads, err := orders.NewService(orderRepo)
	if err != nil {
		return deps, err
	}

	engine, err := lifecycle.NewService(lifecycle.ServiceParams{
		Runner:   runner,
		Orders:   orderRepo,
		Products: products,
		Wallets:  wallets,
		Outbox:   emitter,
		Logger:   logg,
	})
	if err != nil {
		return deps, err
	}

	ratings, err := reviews.NewService(reviews.ServiceParams{
		Repository: reviews.NewRepository(dbClient.DB()),
		Runner:     runner,
		Products:   products,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		return deps, err
	}

	conversations, err := chat.NewService(chat.ServiceParams{
		Repository: chat.NewRepository(dbClient.DB()),
		Runner:     runner,
		Products:   products,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		return deps, err
	}

	feed, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return deps, err
	}

	deps.Products = products
	deps.Reviews = ratings
	deps.Chats = conversations
	deps.Orders = orderReads
	deps.Lifecycle = engine
	deps.Wallets = wallets
	deps.Notifications = feed
	return deps, nil
}
