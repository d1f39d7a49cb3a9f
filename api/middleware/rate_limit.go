package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RateLimitPolicy caps requests per client IP in a fixed window.
type RateLimitPolicy struct {
	Name   string
	Window time.Duration
	Limit  int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// RateLimit counts requests in Redis. When Redis is missing or failing, a
// per-process token bucket per IP keeps a comparable ceiling.
func RateLimit(policy RateLimitPolicy, store redis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() {
			return next
		}
		local := newLocalLimiter(policy)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			allowed := true
			if store != nil {
				ok, _, err := store.FixedWindowAllow(ctx, policy.Name+":"+ip, int64(policy.Limit), policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "rate_limit.redis_unavailable")
					}
					allowed = local.allow(ip)
				} else {
					allowed = ok
				}
			} else {
				allowed = local.allow(ip)
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests from this IP, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(policy RateLimitPolicy) *localLimiter {
	return &localLimiter{
		limit:    rate.Every(policy.Window / time.Duration(policy.Limit)),
		burst:    policy.Limit,
		limiters: map[string]*rate.Limiter{},
	}
}

func (l *localLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
