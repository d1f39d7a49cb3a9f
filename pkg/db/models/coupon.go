package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount code valid until ExpiresAt.
type Coupon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	ExpiresAt       time.Time `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the coupon can still be redeemed at now.
func (c Coupon) IsActive(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}
