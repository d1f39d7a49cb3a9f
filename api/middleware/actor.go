package middleware

import (
	"context"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// RequireActor returns the authenticated caller or an UNAUTHORIZED error.
func RequireActor(ctx context.Context) (types.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}
