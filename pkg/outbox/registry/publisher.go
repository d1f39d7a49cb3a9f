package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and how its data decodes.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each order event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks rows that will never publish however often they are retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// decoderFor returns a strict decoder producing *T.
func decoderFor[T any]() func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		out := new(T)
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// NewEventRegistry routes every order lifecycle event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}

	statusChanged := decoderFor[payloads.OrderStatusChangedEvent]()
	decoders := map[enums.OutboxEventType]func(json.RawMessage) (any, error){
		enums.EventOrderCreated:   decoderFor[payloads.OrderCreatedEvent](),
		enums.EventOrderPaid:      statusChanged,
		enums.EventOrderShipped:   statusChanged,
		enums.EventOrderDelivered: statusChanged,
		enums.EventOrderCancelled: decoderFor[payloads.OrderCancelledEvent](),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(decoders))}
	for eventType, decode := range decoders {
		reg.entries[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			Topic:         cfg.OrdersTopic,
			decode:        decode,
		}
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if envelope.Version > outbox.CurrentVersion {
		return nil, nonRetryable("envelope version %d is newer than %d", envelope.Version, outbox.CurrentVersion)
	}
	if envelope.EventID == "" {
		return nil, nonRetryable("envelope missing eventId")
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
