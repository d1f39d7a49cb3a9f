package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// credentialBodyLimit bounds how much of a login or register body is buffered.
const credentialBodyLimit = 1 << 14

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles credential endpoints per client IP and per
// submitted email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// bucket is one counter a request is charged against.
type bucket struct {
	scope string
	key   string
	limit int
	// logged in place of the raw key
	label string
}

func (p AuthRateLimitPolicy) buckets(ip, email string) []bucket {
	var out []bucket
	if p.ipLimit > 0 && ip != "" {
		out = append(out, bucket{scope: "ip", key: "rl:ip:" + p.name + ":" + ip, limit: p.ipLimit, label: ip})
	}
	if p.emailLimit > 0 && email != "" {
		digest := sha256Hex(email)
		out = append(out, bucket{scope: "email", key: "rl:email:" + p.name + ":" + digest, limit: p.emailLimit, label: digest})
	}
	return out
}

// AuthRateLimit charges each request to its IP and email counters and answers
// 429 once either is over its limit. Store errors fail closed.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var email string
			if policy.emailLimit > 0 {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, credentialBodyLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				email = emailFromBody(body)
			}

			for _, b := range policy.buckets(clientIP(r), email) {
				count, err := store.IncrWithTTL(ctx, b.key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting unavailable"))
					return
				}
				if count > int64(b.limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.name,
							"scope":    b.scope,
							"subject":  b.label,
							"attempts": count,
							"limit":    b.limit,
						}), "auth.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, please try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first valid X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func clientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(creds.Email))
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
