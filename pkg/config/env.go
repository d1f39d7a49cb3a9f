package config

// EnvPrefix is the envconfig prefix; every field also carries its full name as an alt tag.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"

	CouponPolicyFallback = "fallback"
	CouponPolicyReject   = "reject"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvLogLevel  = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat = "STOREFRONT_LOG_FORMAT"

	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvDBPort    = "STOREFRONT_DB_PORT"
	EnvDBSSLMode = "STOREFRONT_DB_SSLMODE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvCheckoutCurrency     = "STOREFRONT_CHECKOUT_CURRENCY"
	EnvCheckoutCouponPolicy = "STOREFRONT_CHECKOUT_EXPIRED_COUPON_POLICY"

	EnvStripeAPIKey = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret = "STOREFRONT_STRIPE_SECRET"

	EnvRateLimitAPILimit = "STOREFRONT_RATE_LIMIT_API_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
