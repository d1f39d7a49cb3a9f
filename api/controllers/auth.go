package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// jsonAction decodes and validates a Req body, runs call and writes its
// result with status.
func jsonAction[Req, Resp any](status int, logg *logger.Logger, call func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if call == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var req Req
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out, err := call(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// AuthLogin exchanges credentials for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return jsonAction[auth.LoginRequest, *auth.TokenResponse](http.StatusOK, logg, nil)
	}
	return jsonAction(http.StatusOK, logg, svc.Login)
}

// AuthRegister creates a shopper account and signs it in.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	if reg == nil {
		return jsonAction[auth.RegisterRequest, *auth.TokenResponse](http.StatusCreated, logg, nil)
	}
	return jsonAction(http.StatusCreated, logg, reg.Register)
}

// AdminAuthRegister creates staff accounts. Only mounted outside production.
func AdminAuthRegister(reg auth.AdminRegisterService, logg *logger.Logger) http.HandlerFunc {
	if reg == nil {
		return jsonAction[auth.AdminRegisterRequest, map[string]any](http.StatusCreated, logg, nil)
	}
	return jsonAction(http.StatusCreated, logg, func(ctx context.Context, req auth.AdminRegisterRequest) (map[string]any, error) {
		user, err := reg.Register(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"user": user}, nil
	})
}
