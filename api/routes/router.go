package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/univend-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/univend-backend/api/controllers/orders"
	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/internal/chat"
	"github.com/angelmondragon/univend-backend/internal/lifecycle"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	"github.com/angelmondragon/univend-backend/internal/orders"
	products "github.com/angelmondragon/univend-backend/internal/products"
	"github.com/angelmondragon/univend-backend/internal/reviews"
	"github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/univend-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Verifier    auth.Verifier
	Idempotency pkgredis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer

	Products      products.Service
	Reviews       reviews.Service
	Chats         chat.Service
	Orders        orders.Service
	Lifecycle     lifecycle.Service
	Wallets       wallet.Service
	Notifications notifications.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(corsOrigins(cfg)),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	buyer := middleware.RequireRole(logg, enums.RoleBuyer)
	vendor := middleware.RequireRole(logg, enums.RoleVendor)
	rider := middleware.RequireRole(logg, enums.RoleRider)
	admin := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/products", func(r chi.Router) {
			r.With(vendor).Post("/", controllers.VendorCreateProduct(deps.Products, logg))
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
			r.Get("/{productId}/availability", controllers.ProductAvailability(deps.Products, logg))
			r.Get("/{productId}/reviews", controllers.ListReviews(deps.Reviews, logg))
			r.Post("/{productId}/reviews", controllers.SubmitReview(deps.Reviews, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(buyer).Post("/", ordercontrollers.Place(deps.Lifecycle, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.With(vendor).Post("/{orderId}/accept", ordercontrollers.Accept(deps.Lifecycle, logg))
			r.With(vendor).Post("/{orderId}/reject", ordercontrollers.Reject(deps.Lifecycle, logg))
			r.With(middleware.RequireRole(logg, enums.RoleBuyer, enums.RoleVendor, enums.RoleAdmin)).
				Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Lifecycle, logg))
			r.With(middleware.RequireRole(logg, enums.RoleRider, enums.RoleVendor, enums.RoleBuyer, enums.RoleAdmin)).
				Post("/{orderId}/delivered", ordercontrollers.Delivered(deps.Lifecycle, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Use(rider)
			r.Get("/available", ordercontrollers.AvailableDeliveries(deps.Orders, logg))
			r.Get("/mine", ordercontrollers.MyDeliveries(deps.Orders, logg))
			r.Post("/{orderId}/claim", ordercontrollers.ClaimDelivery(deps.Lifecycle, logg))
			r.Post("/{orderId}/picked-up", ordercontrollers.PickedUp(deps.Lifecycle, logg))
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", controllers.ListChats(deps.Chats, logg))
			r.Post("/", controllers.OpenChat(deps.Chats, logg))
			r.Get("/{chatId}/messages", controllers.ListChatMessages(deps.Chats, logg))
			r.Post("/{chatId}/messages", controllers.SendChatMessage(deps.Chats, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(deps.Wallets, logg))
			r.Get("/transactions", controllers.ListWalletTransactions(deps.Wallets, logg))
			r.Post("/fund", controllers.FundWallet(deps.Wallets, logg))
			r.With(admin).Get("/reconcile", controllers.ReconcileWallet(deps.Wallets, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Post("/devices", controllers.RegisterDevice(deps.Notifications, logg))
	})

	return r
}

func corsOrigins(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	return cfg.App.CORSOrigins
}
