package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fashionstore-backend/api/routes"
	"github.com/angelmondragon/fashionstore-backend/internal/cart"
	"github.com/angelmondragon/fashionstore-backend/internal/catalog"
	"github.com/angelmondragon/fashionstore-backend/internal/orders"
	"github.com/angelmondragon/fashionstore-backend/internal/payments"
	"github.com/angelmondragon/fashionstore-backend/internal/users"
	"github.com/angelmondragon/fashionstore-backend/internal/wishlist"
	"github.com/angelmondragon/fashionstore-backend/pkg/config"
	"github.com/angelmondragon/fashionstore-backend/pkg/db"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
	"github.com/angelmondragon/fashionstore-backend/pkg/metrics"
	"github.com/angelmondragon/fashionstore-backend/pkg/migrate"
	"github.com/angelmondragon/fashionstore-backend/pkg/outbox"
	"github.com/angelmondragon/fashionstore-backend/pkg/razorpay"
	"github.com/angelmondragon/fashionstore-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDeps(ctx, cfg, logg, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.HTTPMetrics = metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
}

func buildDeps(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Deps, error) {
	gdb := dbClient.DB()

	catalogStore, err := catalog.NewStore(catalog.NewRepository(gdb))
	if err != nil {
		return routes.Deps{}, err
	}
	directory, err := users.NewDirectory(users.NewRepository(gdb))
	if err != nil {
		return routes.Deps{}, err
	}

	cartRepo := cart.NewRepository(gdb)
	cartService, err := cart.NewService(cartRepo, dbClient, catalogStore, directory)
	if err != nil {
		return routes.Deps{}, err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(gdb),
		Catalog:      catalogStore,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	ordersRepo := orders.NewRepository(gdb)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:                   ordersRepo,
		Carts:                  cartRepo,
		Catalog:                catalogStore,
		Users:                  directory,
		Outbox:                 outboxService,
		Tx:                     dbClient,
		Logger:                 logg,
		Metrics:                checkoutMetrics,
		Currency:               cfg.Checkout.Currency,
		MaxOrderNumberAttempts: cfg.Checkout.MaxOrderNumberAttempts,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	deps := routes.Deps{
		Carts:     cartService,
		Wishlist:  wishlistService,
		Orders:    ordersService,
		OutboxDLQ: outbox.NewDLQRepository(gdb),
	}

	if !cfg.Razorpay.Enabled() {
		logg.Warn(ctx, "razorpay credentials missing, payment routes disabled")
		return deps, nil
	}

	rzpClient, err := razorpay.NewClient(ctx, cfg.Razorpay, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	gateway, err := payments.NewRazorpayGateway(rzpClient)
	if err != nil {
		return routes.Deps{}, err
	}
	verifier, err := razorpay.NewSignatureVerifier(cfg.Razorpay.KeySecret)
	if err != nil {
		return routes.Deps{}, err
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(gdb),
		Orders:   ordersRepo,
		Gateway:  gateway,
		Verifier: verifier,
		Outbox:   outboxService,
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  checkoutMetrics,
		Currency: cfg.Checkout.Currency,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	deps.Payments = paymentsService
	return deps, nil
}
