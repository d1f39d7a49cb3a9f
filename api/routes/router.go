package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache is the Redis surface the HTTP layer needs.
type Cache interface {
	redis.Pinger
	redis.RateLimiter
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Services groups the domain services mounted by the router.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.AdminRegisterService
	Catalog       catalog.Service
	Coupons       coupons.Service
	Cart          cart.Service
	Orders        orders.Service
	Checkout      checkout.Service
	StripeWebhook webhookcontrollers.StripeWebhookService
}

// NewRouter wires every HTTP route. metricsHandler defaults to the Prometheus
// default gatherer when nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	cache Cache,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	apiPolicy := middleware.RateLimitPolicy{
		Name:   "api",
		Window: cfg.RateLimit.APIWindow,
		Limit:  cfg.RateLimit.APILimit,
	}
	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)
	authenticate := middleware.Auth(cfg.JWT, logg)
	idempotent := middleware.Idempotency(cache, cfg.Checkout.IdempotencyTTL, logg)
	can := func(c enums.Capability) func(http.Handler) http.Handler {
		return middleware.RequireCapability(c, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": cache,
		}))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(apiPolicy, cache, logg))

		r.Route("/v1/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, cache, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, cache, logg)).Post("/register", controllers.AuthRegister(svc.Register, logg))
		})

		if !cfg.App.IsProd() {
			r.Route("/admin/v1/auth", func(r chi.Router) {
				r.With(middleware.AuthRateLimit(registerPolicy, cache, logg)).Post("/register", controllers.AdminAuthRegister(svc.AdminRegister, logg))
			})
		}

		r.Route("/v1/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Catalog, logg))
			r.Get("/{productId}", controllers.ProductGet(svc.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(authenticate, can(enums.CapabilityCatalogWrite))
				r.Post("/", controllers.ProductCreate(svc.Catalog, logg))
				r.Put("/{productId}", controllers.ProductUpdate(svc.Catalog, logg))
			})
		})

		r.Route("/v1/coupons", func(r chi.Router) {
			r.Use(authenticate, can(enums.CapabilityCouponsManage))
			r.Get("/", controllers.CouponList(svc.Coupons, logg))
			r.Post("/", controllers.CouponCreate(svc.Coupons, logg))
			r.Get("/{couponId}", controllers.CouponGet(svc.Coupons, logg))
			r.Delete("/{couponId}", controllers.CouponDelete(svc.Coupons, logg))
		})

		r.Route("/v1/cart", func(r chi.Router) {
			r.Use(authenticate, can(enums.CapabilityShop))
			r.Get("/", cartcontrollers.Get(svc.Cart, logg))
			r.Post("/", cartcontrollers.AddItem(svc.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(svc.Cart, logg))
			r.Put("/apply-coupon", cartcontrollers.ApplyCoupon(svc.Cart, logg))
			r.Put("/items/{itemId}", cartcontrollers.UpdateItem(svc.Cart, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(svc.Cart, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			// stripe calls this unauthenticated; the signature is the credential
			r.Post("/webhook-checkout", webhookcontrollers.StripeWebhook(svc.StripeWebhook, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				r.Group(func(r chi.Router) {
					r.Use(can(enums.CapabilityShop))
					r.With(idempotent).Post("/checkout-session/{cartId}", ordercontrollers.CheckoutSession(svc.Checkout, logg))
					r.With(idempotent).Post("/{id}", ordercontrollers.CheckoutCash(svc.Checkout, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(can(enums.CapabilityOrdersRead))
					r.Get("/", ordercontrollers.List(svc.Orders, logg))
					r.Get("/{id}", ordercontrollers.Get(svc.Orders, logg))
					r.Put("/{id}", ordercontrollers.UpdateShippingAddress(svc.Orders, logg))
					r.Delete("/{id}", ordercontrollers.Cancel(svc.Orders, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(can(enums.CapabilityOrdersFulfill))
					r.Put("/{id}/pay", ordercontrollers.MarkPaid(svc.Orders, logg))
					r.Put("/{id}/ship", ordercontrollers.MarkShipped(svc.Orders, logg))
					r.Put("/{id}/deliver", ordercontrollers.MarkDelivered(svc.Orders, logg))
				})
			})
		})
	})

	return r
}
