// Package pricing computes cart totals. Every function is pure.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrCouponExpired means the coupon existed but its expiry has passed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponInvalid means the coupon is missing or its discount is out of range.
	ErrCouponInvalid = errors.New("coupon invalid")
)

var hundred = decimal.NewFromInt(100)

// Line is a priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Coupon is the subset of a coupon pricing needs.
type Coupon struct {
	Code            string
	DiscountPercent int
	ExpiresAt       time.Time
}

// Quote is the priced view of a set of lines.
type Quote struct {
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	Discount        decimal.Decimal
	CouponApplied   bool
	CouponRejection error
}

// Subtotal returns the sum of unit price times quantity, rounded to cents.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2)
}

// ValidateCoupon reports why coupon can not be redeemed at now, or nil.
func ValidateCoupon(coupon *Coupon, now time.Time) error {
	if coupon == nil || coupon.DiscountPercent < 1 || coupon.DiscountPercent > 100 {
		return ErrCouponInvalid
	}
	if !now.Before(coupon.ExpiresAt) {
		return ErrCouponExpired
	}
	return nil
}

// Discounted applies percent off subtotal: subtotal * (1 - percent/100), rounded to cents.
func Discounted(subtotal decimal.Decimal, percent int) decimal.Decimal {
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return subtotal.Mul(factor).Round(2)
}

// Price prices lines, applying coupon when it is still valid at now.
// A coupon that can not be applied is reported in CouponRejection, never as an error.
func Price(lines []Line, coupon *Coupon, now time.Time) Quote {
	subtotal := Subtotal(lines)
	q := Quote{Subtotal: subtotal, Total: subtotal, Discount: decimal.Zero}
	if coupon == nil {
		return q
	}
	if err := ValidateCoupon(coupon, now); err != nil {
		q.CouponRejection = err
		return q
	}
	q.Total = Discounted(subtotal, coupon.DiscountPercent)
	q.Discount = subtotal.Sub(q.Total)
	q.CouponApplied = true
	return q
}

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts a gateway amount in cents back to a decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
