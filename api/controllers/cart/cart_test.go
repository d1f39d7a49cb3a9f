package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubCart struct {
	cart.Service
	added    cart.AddItemInput
	quantity int
	coupon   string
	cleared  bool
	err      error
}

func (s *stubCart) AddItem(_ context.Context, _ uuid.UUID, in cart.AddItemInput) (*cart.CartDTO, error) {
	s.added = in
	return &cart.CartDTO{ID: uuid.New(), Subtotal: decimal.NewFromInt(100), NumOfItems: 1}, nil
}

func (s *stubCart) UpdateItemQuantity(_ context.Context, _, _ uuid.UUID, q int) (*cart.CartDTO, error) {
	s.quantity = q
	return &cart.CartDTO{}, nil
}

func (s *stubCart) ApplyCoupon(_ context.Context, _ uuid.UUID, code string) (*cart.CartDTO, error) {
	s.coupon = code
	if s.err != nil {
		return nil, s.err
	}
	return &cart.CartDTO{}, nil
}

func (s *stubCart) Clear(context.Context, uuid.UUID) error {
	s.cleared = true
	return nil
}

var shopper = types.Actor{UserID: uuid.New(), Role: enums.RoleUser}

func serve(method, pattern, target, body string, h http.HandlerFunc, withActor bool) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if withActor {
		req = req.WithContext(middleware.WithActor(req.Context(), shopper))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAddItem(t *testing.T) {
	svc := &stubCart{}
	productID := uuid.New()
	rec := serve(http.MethodPost, "/cart", "/cart", `{"productId":"`+productID.String()+`","color":"red"}`, AddItem(svc, nil), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.added.ProductID != productID || svc.added.Color == nil || *svc.added.Color != "red" {
		t.Fatalf("unexpected input %+v", svc.added)
	}
	if !strings.Contains(rec.Body.String(), `"totalCartPrice":"100"`) {
		t.Fatalf("cart totals missing: %s", rec.Body.String())
	}
}

func TestAddItemValidation(t *testing.T) {
	svc := &stubCart{}
	rec := serve(http.MethodPost, "/cart", "/cart", `{"color":"red"}`, AddItem(svc, nil), true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without productId, got %d", rec.Code)
	}
	rec = serve(http.MethodPost, "/cart", "/cart", `{"productId":"`+uuid.NewString()+`"}`, AddItem(svc, nil), false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}
}

func TestUpdateItemQuantityBounds(t *testing.T) {
	svc := &stubCart{}
	target := "/cart/items/" + uuid.NewString()
	rec := serve(http.MethodPut, "/cart/items/{itemId}", target, `{"quantity":0}`, UpdateItem(svc, nil), true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
	}
	rec = serve(http.MethodPut, "/cart/items/{itemId}", target, `{"quantity":3}`, UpdateItem(svc, nil), true)
	if rec.Code != http.StatusOK || svc.quantity != 3 {
		t.Fatalf("expected update to 3, got status %d quantity %d", rec.Code, svc.quantity)
	}
}

func TestApplyCouponRejected(t *testing.T) {
	svc := &stubCart{err: pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired")}
	rec := serve(http.MethodPut, "/cart/apply-coupon", "/cart/apply-coupon", `{"coupon":"OLD"}`, ApplyCoupon(svc, nil), true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.coupon != "OLD" || !strings.Contains(rec.Body.String(), "coupon is invalid or expired") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestClear(t *testing.T) {
	svc := &stubCart{}
	rec := serve(http.MethodDelete, "/cart", "/cart", "", Clear(svc, nil), true)
	if rec.Code != http.StatusNoContent || !svc.cleared {
		t.Fatalf("expected 204 and cleared, got %d", rec.Code)
	}
}
