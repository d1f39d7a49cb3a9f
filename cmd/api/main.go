package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.Shared(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	sessions, err := stripe.NewCheckoutSessions(stripeClient)
	if err != nil {
		return err
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, stripeClient, sessions)
	if err != nil {
		return err
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, nil, services)
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadTimeout:       cfg.App.ReadTimeout,
		ReadHeaderTimeout: cfg.App.ReadTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *stripe.Client,
	sessions *stripe.CheckoutSessions,
) (routes.Services, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	var errs error
	var out routes.Services
	var err error

	out.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
	})
	errs = multierr.Append(errs, err)

	out.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	errs = multierr.Append(errs, err)

	out.AdminRegister, err = auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	errs = multierr.Append(errs, err)

	out.Catalog, err = catalog.NewService(catalogRepo)
	errs = multierr.Append(errs, err)

	out.Coupons, err = coupons.NewService(couponRepo)
	errs = multierr.Append(errs, err)

	out.Cart, err = cart.NewService(cartRepo, dbClient, catalogRepo, couponRepo)
	errs = multierr.Append(errs, err)

	out.Orders, err = orders.NewService(orderRepo, dbClient, emitter, catalogRepo)
	errs = multierr.Append(errs, err)

	out.Checkout, err = checkout.NewService(checkout.ServiceParams{
		DB:       dbClient,
		Carts:    cartRepo,
		Orders:   orderRepo,
		Catalog:  catalogRepo,
		Coupons:  couponRepo,
		Users:    userRepo,
		Sessions: sessions,
		Outbox:   emitter,
		Metrics:  checkoutMetrics,
		Logger:   logg,
		Config:   cfg.Checkout,
	})
	errs = multierr.Append(errs, err)
	if errs != nil {
		return routes.Services{}, errs
	}

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookEventTTL, stripewebhook.Provider)
	if err != nil {
		return routes.Services{}, err
	}
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		SigningSecret: stripeClient.SigningSecret(),
		Guard:         guard,
		Payments:      out.Checkout,
		Metrics:       checkoutMetrics,
		Logger:        logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	out.StripeWebhook = webhookSvc

	return out, nil
}
