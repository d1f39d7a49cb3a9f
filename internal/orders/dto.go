package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user"`
	SourceCartID      uuid.UUID           `json:"sourceCart"`
	Items             []OrderItemDTO      `json:"cartItems"`
	TaxPrice          decimal.Decimal     `json:"taxPrice"`
	ShippingPrice     decimal.Decimal     `json:"shippingPrice"`
	TotalOrderPrice   decimal.Decimal     `json:"totalOrderPrice"`
	PaymentMethodType enums.PaymentMethod `json:"paymentMethodType"`
	Status            enums.OrderStatus   `json:"status"`
	IsPaid            bool                `json:"isPaid"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	IsDelivered       bool                `json:"isDelivered"`
	DeliveredAt       *time.Time          `json:"deliveredAt,omitempty"`
	ShippedAt         *time.Time          `json:"shippedAt,omitempty"`
	CancelledAt       *time.Time          `json:"cancelledAt,omitempty"`
	ShippingAddress   types.Address       `json:"shippingAddress"`
	PaymentReference  *string             `json:"paymentReference,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// OrderItemDTO is one frozen order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product"`
	Quantity  int             `json:"quantity"`
	Color     *string         `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ToDTO maps a persisted order.
func ToDTO(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Color:     line.Color,
			Price:     line.Price,
		})
	}
	return OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		SourceCartID:      o.SourceCartID,
		Items:             items,
		TaxPrice:          o.TaxPrice,
		ShippingPrice:     o.ShippingPrice,
		TotalOrderPrice:   o.TotalOrderPrice,
		PaymentMethodType: o.PaymentMethodType,
		Status:            o.Status,
		IsPaid:            o.IsPaid,
		PaidAt:            o.PaidAt,
		IsDelivered:       o.IsDelivered,
		DeliveredAt:       o.DeliveredAt,
		ShippedAt:         o.ShippedAt,
		CancelledAt:       o.CancelledAt,
		ShippingAddress:   o.ShippingAddress,
		PaymentReference:  o.PaymentReference,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}
