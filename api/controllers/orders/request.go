package orders

import "github.com/angelmondragon/storefront-backend/pkg/types"

type shippingAddressBody struct {
	Details    string `json:"details" validate:"required,max=500"`
	Phone      string `json:"phone" validate:"required,max=32"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postalCode" validate:"omitempty,max=32"`
}

type checkoutRequest struct {
	ShippingAddress *shippingAddressBody `json:"shippingAddress" validate:"required"`
}

type updateShippingRequest struct {
	ShippingAddress types.AddressPatch `json:"shippingAddress"`
}

func (b *shippingAddressBody) toAddress() types.Address {
	return types.Address{
		Details:    b.Details,
		Phone:      b.Phone,
		City:       b.City,
		PostalCode: b.PostalCode,
	}
}
