package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fashionstore-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/fashionstore-backend/api/controllers/admin"
	cartcontrollers "github.com/angelmondragon/fashionstore-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/fashionstore-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/fashionstore-backend/api/controllers/payments"
	wishlistcontrollers "github.com/angelmondragon/fashionstore-backend/api/controllers/wishlist"
	"github.com/angelmondragon/fashionstore-backend/api/middleware"
	"github.com/angelmondragon/fashionstore-backend/internal/cart"
	"github.com/angelmondragon/fashionstore-backend/internal/orders"
	"github.com/angelmondragon/fashionstore-backend/internal/payments"
	"github.com/angelmondragon/fashionstore-backend/internal/wishlist"
	"github.com/angelmondragon/fashionstore-backend/pkg/config"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
	"github.com/angelmondragon/fashionstore-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/fashionstore-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Deps carries everything NewRouter wires. Nil services answer 500 on their routes.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       RedisStore
	HTTPMetrics *metrics.HTTPMetrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	Carts     cart.Service
	Wishlist  wishlist.Service
	Orders    orders.Service
	Payments  payments.Service
	OutboxDLQ admincontrollers.DLQReader
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var redisPinger controllers.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idempotencyStore = deps.Redis
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", time.Minute, cfg.Checkout.RateLimitPerMinute)
	verifyPolicy := middleware.NewRateLimitPolicy("payment-verify", time.Minute, cfg.Checkout.RateLimitPerMinute)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Checkout.IdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Carts, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Carts, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Carts, logg))
				r.Patch("/items/{itemId}", cartcontrollers.CartUpdateItem(deps.Carts, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(deps.Carts, logg))
			})
			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistcontrollers.List(deps.Wishlist, logg))
				r.Delete("/", wishlistcontrollers.Clear(deps.Wishlist, logg))
				r.Get("/ids", wishlistcontrollers.IDs(deps.Wishlist, logg))
				r.Post("/{productId}", wishlistcontrollers.Add(deps.Wishlist, logg))
				r.Delete("/{productId}", wishlistcontrollers.Remove(deps.Wishlist, logg))
			})
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/transactions", paymentcontrollers.Transactions(deps.Payments, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Get("/history", ordercontrollers.History(deps.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.Post("/payment", paymentcontrollers.Initiate(deps.Payments, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireStaff(logg))
					r.Patch("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
					r.Post("/recalculate", ordercontrollers.Recalculate(deps.Orders, logg))
				})
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/key", paymentcontrollers.PublicKey(deps.Payments, logg))
			r.With(middleware.RateLimit(verifyPolicy, deps.Redis, logg)).Post("/verify", paymentcontrollers.Verify(deps.Payments, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Get("/outbox/dlq", admincontrollers.OutboxDLQList(deps.OutboxDLQ, logg))
			r.Get("/outbox/dlq/{eventId}", admincontrollers.OutboxDLQDetail(deps.OutboxDLQ, logg))
		})
	})

	return r
}
