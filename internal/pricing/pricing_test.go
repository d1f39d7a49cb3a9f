package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSubtotal(t *testing.T) {
	lines := []Line{
		{UnitPrice: d("100"), Quantity: 2},
		{UnitPrice: d("50"), Quantity: 1},
	}
	if got := Subtotal(lines); !got.Equal(d("250")) {
		t.Fatalf("subtotal = %s want 250", got)
	}
	if got := Subtotal(nil); !got.IsZero() {
		t.Fatalf("empty subtotal = %s", got)
	}
}

func TestPriceWorkedExample(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	lines := []Line{{UnitPrice: d("100"), Quantity: 2}, {UnitPrice: d("50"), Quantity: 1}}
	coupon := &Coupon{Code: "SAVE20", DiscountPercent: 20, ExpiresAt: now.Add(24 * time.Hour)}

	q := Price(lines, coupon, now)
	if !q.Subtotal.Equal(d("250")) || !q.Total.Equal(d("200")) || !q.Discount.Equal(d("50")) {
		t.Fatalf("unexpected quote %+v", q)
	}
	if !q.CouponApplied || q.CouponRejection != nil {
		t.Fatalf("coupon should apply: %+v", q)
	}
	if ToMinorUnits(q.Total) != 20000 {
		t.Fatalf("minor units = %d", ToMinorUnits(q.Total))
	}
}

func TestPriceExpiredCouponFallsBackToSubtotal(t *testing.T) {
	now := time.Now()
	coupon := &Coupon{Code: "OLD", DiscountPercent: 50, ExpiresAt: now.Add(-time.Minute)}
	q := Price([]Line{{UnitPrice: d("10"), Quantity: 3}}, coupon, now)
	if !q.Total.Equal(d("30")) || q.CouponApplied {
		t.Fatalf("expired coupon must not apply: %+v", q)
	}
	if !errors.Is(q.CouponRejection, ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got %v", q.CouponRejection)
	}
}

func TestCouponExpiresExactlyAtExpiry(t *testing.T) {
	now := time.Now()
	if err := ValidateCoupon(&Coupon{DiscountPercent: 10, ExpiresAt: now}, now); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("coupon must be invalid at its expiry instant, got %v", err)
	}
}

func TestValidateCouponRange(t *testing.T) {
	future := time.Now().Add(time.Hour)
	for _, pct := range []int{0, -5, 101} {
		if err := ValidateCoupon(&Coupon{DiscountPercent: pct, ExpiresAt: future}, time.Now()); !errors.Is(err, ErrCouponInvalid) {
			t.Fatalf("percent %d: expected ErrCouponInvalid, got %v", pct, err)
		}
	}
	if err := ValidateCoupon(nil, time.Now()); !errors.Is(err, ErrCouponInvalid) {
		t.Fatalf("nil coupon should be invalid")
	}
}

func TestDiscountedRoundsToCents(t *testing.T) {
	cases := []struct {
		subtotal string
		pct      int
		want     string
	}{
		{"99.99", 15, "84.99"},
		{"10.00", 33, "6.70"},
		{"0.05", 50, "0.03"},
		{"120", 100, "0"},
	}
	for _, tc := range cases {
		if got := Discounted(d(tc.subtotal), tc.pct); !got.Equal(d(tc.want)) {
			t.Fatalf("Discounted(%s, %d) = %s want %s", tc.subtotal, tc.pct, got, tc.want)
		}
	}
}

func TestMinorUnitConversion(t *testing.T) {
	if got := ToMinorUnits(d("19.995")); got != 2000 {
		t.Fatalf("half should round away from zero, got %d", got)
	}
	if got := FromMinorUnits(20000); !got.Equal(d("200")) {
		t.Fatalf("FromMinorUnits = %s", got)
	}
	if got := FromMinorUnits(1999); got.String() != "19.99" {
		t.Fatalf("FromMinorUnits(1999) = %s", got)
	}
}

func TestLinesFromCart(t *testing.T) {
	items := []models.CartItem{
		{UnitPrice: d("12.50"), Quantity: 2},
		{UnitPrice: d("5"), Quantity: 1},
	}
	if got := Subtotal(LinesFromCart(items)); !got.Equal(d("30")) {
		t.Fatalf("subtotal from cart = %s", got)
	}
	if CouponFromModel(nil) != nil {
		t.Fatalf("nil coupon should map to nil")
	}
}
