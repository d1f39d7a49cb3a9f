package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Color     *string   `json:"color,omitempty" validate:"omitempty,max=64"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type applyCouponRequest struct {
	Coupon string `json:"coupon" validate:"required,max=64"`
}

func (r addItemRequest) toInput() cart.AddItemInput {
	return cart.AddItemInput{ProductID: r.ProductID, Color: r.Color}
}
