package enums

import "slices"

// OrderStatus tracks an order through fulfilment.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderStatuses is in lifecycle order; cancelled can branch off any non-terminal step.
var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	return slices.Contains(orderStatuses, s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", orderStatuses, value)
}
