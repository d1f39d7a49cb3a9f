package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a cart has been converted into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	UserID        uuid.UUID           `json:"userId"`
	SourceCartID  uuid.UUID           `json:"sourceCartId"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Status        enums.OrderStatus   `json:"status"`
	IsPaid        bool                `json:"isPaid"`
	Total         decimal.Decimal     `json:"total"`
	LineCount     int                 `json:"lineCount"`
}

// OrderStatusChangedEvent covers the paid, shipped and delivered transitions.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	UserID    uuid.UUID         `json:"userId"`
	Status    enums.OrderStatus `json:"status"`
	ChangedAt time.Time         `json:"changedAt"`
}

// OrderCancelledEvent is emitted once stock for a cancelled order was restored.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID `json:"orderId"`
	UserID         uuid.UUID `json:"userId"`
	CancelledAt    time.Time `json:"cancelledAt"`
	RestockedUnits int       `json:"restockedUnits"`
}
