package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the frozen copy of a cart item taken at checkout.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Color     *string         `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
}
