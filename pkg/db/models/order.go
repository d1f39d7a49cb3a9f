package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable record a cart is converted into at checkout.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:ix_orders_user"`
	SourceCartID      uuid.UUID           `gorm:"column:source_cart_id;type:uuid;not null;uniqueIndex:ux_orders_source_cart"`
	Items             []types.OrderLine   `gorm:"column:items;type:jsonb;not null;serializer:json"`
	TaxPrice          decimal.Decimal     `gorm:"column:tax_price;type:numeric(12,2);not null;default:0"`
	ShippingPrice     decimal.Decimal     `gorm:"column:shipping_price;type:numeric(12,2);not null;default:0"`
	TotalOrderPrice   decimal.Decimal     `gorm:"column:total_order_price;type:numeric(12,2);not null"`
	PaymentMethodType enums.PaymentMethod `gorm:"column:payment_method_type;type:text;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	IsPaid            bool                `gorm:"column:is_paid;not null;default:false"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	IsDelivered       bool                `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
	ShippedAt         *time.Time          `gorm:"column:shipped_at"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	ShippingAddress   types.Address       `gorm:"column:shipping_address;type:jsonb;not null;serializer:json"`
	PaymentReference  *string             `gorm:"column:payment_reference"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
