package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Cash checkout shares the /orders/{id} segment with the order routes, so the
// cart id arrives under the order param name.
const (
	orderParam = "id"
	cartParam  = "cartId"
)

// CheckoutCash converts the caller's cart into a pending cash order.
func CheckoutCash(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, cartID, shipping, err := checkoutInput(r, orderParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ctx = withCart(ctx, logg, cartID)

		order, err := svc.CheckoutCash(ctx, actor, cartID, shipping)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderID(ctx, order.ID.String()), "cash order created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CheckoutSession opens a hosted payment session for the cart. Stock is
// untouched until the gateway confirms payment.
func CheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, cartID, shipping, err := checkoutInput(r, cartParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ctx = withCart(ctx, logg, cartID)

		session, err := svc.CreateSession(ctx, actor, cartID, shipping)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"session": session})
	}
}

func List(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.List(ctx, actor, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Get(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.Get, logg)
}

func MarkPaid(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.MarkPaid, logg)
}

func MarkShipped(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.MarkShipped, logg)
}

func MarkDelivered(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.MarkDelivered, logg)
}

// Cancel cancels an undelivered order and restores its stock.
func Cancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc.Cancel, logg)
}

func UpdateShippingAddress(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, orderParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateShippingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.UpdateShippingAddress(ctx, actor, id, body.ShippingAddress)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type orderFunc func(ctx context.Context, actor types.Actor, id uuid.UUID) (*orders.OrderDTO, error)

func orderAction(fn orderFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, orderParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithOrderID(ctx, id.String())
		}
		order, err := fn(ctx, actor, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func checkoutInput(r *http.Request, param string) (types.Actor, uuid.UUID, types.Address, error) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		return types.Actor{}, uuid.Nil, types.Address{}, err
	}
	cartID, err := validators.ParseUUIDParam(r, param)
	if err != nil {
		return types.Actor{}, uuid.Nil, types.Address{}, err
	}
	var body checkoutRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return types.Actor{}, uuid.Nil, types.Address{}, err
	}
	return actor, cartID, body.ShippingAddress.toAddress(), nil
}

func withCart(ctx context.Context, logg *logger.Logger, cartID uuid.UUID) context.Context {
	if logg == nil {
		return ctx
	}
	return logg.WithCartID(ctx, cartID.String())
}
