package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartDTO is the cart payload returned to shoppers.
type CartDTO struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user"`
	Items           []CartItemDTO    `json:"cartItems"`
	Subtotal        decimal.Decimal  `json:"totalCartPrice"`
	CouponCode      *string          `json:"coupon,omitempty"`
	DiscountedTotal *decimal.Decimal `json:"totalPriceAfterDiscount,omitempty"`
	NumOfItems      int              `json:"numOfCartItems"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CartItemDTO is one cart line.
type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product"`
	Quantity  int             `json:"quantity"`
	Color     *string         `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// AddItemInput identifies the product line to add.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     *string
}

// ToDTO maps a persisted cart.
func ToDTO(c *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Price:     item.UnitPrice,
		})
	}
	return CartDTO{
		ID:              c.ID,
		UserID:          c.UserID,
		Items:           items,
		Subtotal:        c.Subtotal,
		CouponCode:      c.CouponCode,
		DiscountedTotal: c.DiscountedTotal,
		NumOfItems:      len(items),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
