package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart holds a user's pending line items. One cart per user.
type Cart struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_carts_user"`
	CouponCode      *string          `gorm:"column:coupon_code"`
	Subtotal        decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountedTotal *decimal.Decimal `gorm:"column:discounted_total;type:numeric(12,2)"`
	Items           []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
