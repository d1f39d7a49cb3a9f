package enums

import "slices"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// OutboxEventType names the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order.created"
	EventOrderPaid      OutboxEventType = "order.paid"
	EventOrderShipped   OutboxEventType = "order.shipped"
	EventOrderDelivered OutboxEventType = "order.delivered"
	EventOrderCancelled OutboxEventType = "order.cancelled"
)

var eventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderShipped,
	EventOrderDelivered,
	EventOrderCancelled,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(eventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", eventTypes, value)
}

// OutboxDLQErrorReason records why an event was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value is a known dead-letter reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
