package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CurrentVersion is the newest envelope version this build writes and reads.
const CurrentVersion = 1

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload. Data holds the
// event-specific body; consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DomainEvent is what services hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	// Version and OccurredAt default to CurrentVersion and the emit time.
	Version    int
	OccurredAt time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q", e.AggregateType)
	case e.Version < 0 || e.Version > CurrentVersion:
		return fmt.Errorf("unsupported envelope version %d", e.Version)
	}
	return nil
}

// seal wraps the event body in a fresh envelope and encodes it.
func (e DomainEvent) seal(now time.Time) (PayloadEnvelope, []byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode %s payload: %w", e.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    e.Version,
		EventID:    uuid.NewString(),
		OccurredAt: e.OccurredAt.UTC(),
		Actor:      e.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if e.OccurredAt.IsZero() {
		env.OccurredAt = now.UTC()
	}
	encoded, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, encoded, nil
}
