package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on ctx.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller set by Auth.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(types.Actor)
	return actor, ok
}

// UserIDFromContext returns the caller id as a string, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}
