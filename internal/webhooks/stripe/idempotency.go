package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

var errNoEventID = errors.New("event id is required")

// IdempotencyGuard claims gateway event ids in redis so that redelivered
// events are acknowledged without being applied twice.
type IdempotencyGuard struct {
	store    redis.WebhookEventStore
	provider string
	ttl      time.Duration
	now      func() time.Time
}

// NewIdempotencyGuard builds a guard whose claims live for ttl. A zero ttl keeps
// claims until they are released.
func NewIdempotencyGuard(store redis.WebhookEventStore, ttl time.Duration, provider string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("webhook event store is required")
	case ttl < 0:
		return nil, fmt.Errorf("ttl must be non-negative, got %s", ttl)
	case provider == "":
		return nil, errors.New("provider is required")
	}
	return &IdempotencyGuard{store: store, provider: provider, ttl: ttl, now: time.Now}, nil
}

// CheckAndMark claims eventID. It reports true when an earlier delivery
// already holds the claim.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errNoEventID
	}
	claimedAt := strconv.FormatInt(g.now().Unix(), 10)
	won, err := g.store.SetNX(ctx, g.key(eventID), claimedAt, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s event %s: %w", g.provider, eventID, err)
	}
	return !won, nil
}

// Release gives the claim back after a failed apply so the gateway's retry
// is processed.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errNoEventID
	}
	if err := g.store.Del(ctx, g.key(eventID)); err != nil {
		return fmt.Errorf("release %s event %s: %w", g.provider, eventID, err)
	}
	return nil
}

func (g *IdempotencyGuard) key(eventID string) string {
	return g.store.WebhookEventKey(g.provider, eventID)
}
