package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubCheckout struct {
	cartID   uuid.UUID
	shipping types.Address
	err      error
}

func (s *stubCheckout) CheckoutCash(_ context.Context, _ types.Actor, cartID uuid.UUID, shipping types.Address) (*orders.OrderDTO, error) {
	s.cartID, s.shipping = cartID, shipping
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: uuid.New(), SourceCartID: cartID, Status: enums.OrderStatusPending}, nil
}

func (s *stubCheckout) CreateSession(_ context.Context, _ types.Actor, cartID uuid.UUID, shipping types.Address) (*checkout.SessionResult, error) {
	s.cartID, s.shipping = cartID, shipping
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.SessionResult{SessionID: "cs_1", URL: "https://pay.test/cs_1", Amount: decimal.NewFromInt(200), Currency: "usd"}, nil
}

func (s *stubCheckout) CompleteCardPayment(context.Context, checkout.CardPayment) (*checkout.CardResult, error) {
	return nil, nil
}

type stubOrders struct {
	orders.Service
	cancelled uuid.UUID
	patch     types.AddressPatch
	err       error
}

func (s *stubOrders) Cancel(_ context.Context, _ types.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
	s.cancelled = id
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrders) UpdateShippingAddress(_ context.Context, _ types.Actor, id uuid.UUID, patch types.AddressPatch) (*orders.OrderDTO, error) {
	s.patch = patch
	return &orders.OrderDTO{ID: id}, nil
}

func (s *stubOrders) List(context.Context, types.Actor, pagination.Params) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{Orders: []orders.OrderDTO{{ID: uuid.New()}}}, nil
}

var shopper = types.Actor{UserID: uuid.New(), Role: enums.RoleUser}

func serve(t *testing.T, method, pattern, target, body string, h http.HandlerFunc, actor *types.Actor) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validShipping = `{"shippingAddress":{"details":"1 Nile St","phone":"0100","city":"Cairo"}}`

func TestCheckoutCashCreated(t *testing.T) {
	svc := &stubCheckout{}
	cartID := uuid.New()
	rec := serve(t, http.MethodPost, "/orders/{id}", "/orders/"+cartID.String(), validShipping, CheckoutCash(svc, nil), &shopper)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.cartID != cartID || svc.shipping.City != "Cairo" || svc.shipping.PostalCode != "" {
		t.Fatalf("unexpected service input %s %+v", svc.cartID, svc.shipping)
	}
	var env struct {
		Status string          `json:"status"`
		Data   orders.OrderDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != types.StatusSuccess || env.Data.SourceCartID != cartID {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestCheckoutRequiresShippingAddress(t *testing.T) {
	svc := &stubCheckout{}
	cases := map[string]string{
		"missing":  `{}`,
		"no city":  `{"shippingAddress":{"details":"x","phone":"1"}}`,
		"unknown":  `{"shippingAddress":{"details":"x","phone":"1","city":"c"},"extra":1}`,
		"not json": `nope`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, http.MethodPost, "/orders/{id}", "/orders/"+uuid.NewString(), body, CheckoutCash(svc, nil), &shopper)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCheckoutRejectsBadCartIDAndAnonymous(t *testing.T) {
	svc := &stubCheckout{}
	rec := serve(t, http.MethodPost, "/orders/{id}", "/orders/not-a-uuid", validShipping, CheckoutCash(svc, nil), &shopper)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = serve(t, http.MethodPost, "/orders/{id}", "/orders/"+uuid.NewString(), validShipping, CheckoutCash(svc, nil), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckoutInsufficientStockConflict(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"shortages": []string{"desk"}})}
	rec := serve(t, http.MethodPost, "/orders/{id}", "/orders/"+uuid.NewString(), validShipping, CheckoutCash(svc, nil), &shopper)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var env types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Details == nil {
		t.Fatalf("expected shortage details")
	}
}

func TestCheckoutSessionReturnsSession(t *testing.T) {
	svc := &stubCheckout{}
	rec := serve(t, http.MethodPost, "/orders/checkout-session/{cartId}", "/orders/checkout-session/"+uuid.NewString(), validShipping, CheckoutSession(svc, nil), &shopper)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sessionId":"cs_1"`) {
		t.Fatalf("session missing from body: %s", rec.Body.String())
	}
}

func TestCheckoutSessionGatewayFailure(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodePaymentGateway, "stripe said no")}
	rec := serve(t, http.MethodPost, "/orders/checkout-session/{cartId}", "/orders/checkout-session/"+uuid.NewString(), validShipping, CheckoutSession(svc, nil), &shopper)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var env types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != types.StatusError || env.Message != "failed to create checkout session" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestCancelAndUpdateShipping(t *testing.T) {
	svc := &stubOrders{}
	id := uuid.New()
	rec := serve(t, http.MethodDelete, "/orders/{id}", "/orders/"+id.String(), "", Cancel(svc, nil), &shopper)
	if rec.Code != http.StatusOK || svc.cancelled != id {
		t.Fatalf("cancel: status %d id %s", rec.Code, svc.cancelled)
	}

	rec = serve(t, http.MethodPut, "/orders/{id}", "/orders/"+id.String(), `{"shippingAddress":{"city":"Giza"}}`, UpdateShippingAddress(svc, nil), &shopper)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.patch.City == nil || *svc.patch.City != "Giza" || svc.patch.Phone != nil {
		t.Fatalf("unexpected patch %+v", svc.patch)
	}
}

func TestCancelDeliveredIsBadRequest(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeInvalidState, "order already delivered")}
	rec := serve(t, http.MethodDelete, "/orders/{id}", "/orders/"+uuid.NewString(), "", Cancel(svc, nil), &shopper)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	rec := serve(t, http.MethodGet, "/orders", "/orders?limit=5", "", List(&stubOrders{}, nil), &shopper)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = serve(t, http.MethodGet, "/orders", "/orders?limit=abc", "", List(&stubOrders{}, nil), &shopper)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}
