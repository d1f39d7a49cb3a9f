package pricing

import "github.com/angelmondragon/storefront-backend/pkg/db/models"

// LinesFromCart maps persisted cart items to pricing lines.
func LinesFromCart(items []models.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}

// CouponFromModel adapts a stored coupon. A nil input yields nil.
func CouponFromModel(c *models.Coupon) *Coupon {
	if c == nil {
		return nil
	}
	return &Coupon{Code: c.Code, DiscountPercent: c.DiscountPercent, ExpiresAt: c.ExpiresAt}
}
