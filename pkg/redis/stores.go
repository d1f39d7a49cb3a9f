package redis

import (
	"context"
	"time"
)

// Pinger is satisfied by anything the health handler can probe.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore backs the HTTP idempotency middleware.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// WebhookEventStore backs the gateway event de-duplication guard.
type WebhookEventStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	WebhookEventKey(provider, eventID string) string
	Del(context.Context, ...string) error
}

// RateLimiter counts requests per fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

var (
	_ IdempotencyStore  = (*Client)(nil)
	_ WebhookEventStore = (*Client)(nil)
	_ RateLimiter       = (*Client)(nil)
	_ Pinger            = (*Client)(nil)
)
