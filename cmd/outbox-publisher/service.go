package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type (
	pinger interface {
		Ping(context.Context) error
	}

	dbClient interface {
		pinger
		WithTx(context.Context, func(tx *gorm.DB) error) error
	}

	pubSubClient interface {
		pinger
		Publisher(name string) *gcppubsub.Publisher
	}

	// outboxRepository settles rows inside the batch transaction.
	outboxRepository interface {
		FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
		MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
		MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
		MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
	}

	dlqRepository interface {
		InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
	}

	registryResolver interface {
		Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
	}

	// publisherFactory returns nil when no publisher serves topic.
	publisherFactory func(topic string) publisher

	publisher interface {
		Publish(context.Context, *gcppubsub.Message) publishResult
	}

	// publishResult is the part of *pubsub.PublishResult the service waits on.
	publishResult interface {
		Get(context.Context) (serverID string, err error)
	}
)

// outcome is what happened to a single row within a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeParked
)

// batchStats summarizes one pass over the outbox.
type batchStats struct {
	fetched   int
	published int
	retried   int
	parked    int
}

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"fetched":   b.fetched,
		"published": b.published,
		"retried":   b.retried,
		"parked":    b.parked,
	}
}

type ServiceParams struct {
	Outbox           config.OutboxConfig
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	PublisherFactory publisherFactory
}

// Service drains outbox_events into Pub/Sub, parking rows it cannot deliver.
type Service struct {
	logg    *logger.Logger
	db      dbClient
	broker  pubSubClient
	repo    outboxRepository
	events  registryResolver
	dead    dlqRepository
	topicOf publisherFactory
	tuning
	now func() time.Time
}

type tuning struct {
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		broker := params.PubSub
		factory = func(topic string) publisher { return newTopicPublisher(broker.Publisher(topic)) }
	}

	return &Service{
		logg:    params.Logger,
		db:      params.DB,
		broker:  params.PubSub,
		repo:    params.Repository,
		events:  params.Registry,
		dead:    params.DLQRepository,
		topicOf: factory,
		tuning: tuning{
			batchSize:    positiveOr(params.Outbox.BatchSize, defaultBatchSize),
			maxAttempts:  positiveOr(params.Outbox.MaxAttempts, defaultMaxAttempts),
			pollInterval: time.Duration(positiveOr(params.Outbox.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		},
		now: time.Now,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.broker.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", check.name), "dependency ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled. Errors back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		stats, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "retry_in_ms", backoff.Milliseconds()), "outbox batch failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = s.pollInterval

		if stats.fetched > 0 {
			s.logg.Info(s.logg.WithFields(ctx, stats.fields()), "outbox batch drained")
			continue
		}
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch locks up to batchSize rows and settles each of them in the same
// transaction. Only bookkeeping failures abort the batch; publish failures are
// recorded on the row.
func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = batchStats{}
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox events: %w", err)
		}
		stats.fetched = len(events)

		for _, event := range events {
			result, err := s.settle(ctx, tx, event)
			if err != nil {
				return err
			}
			switch result {
			case outcomePublished:
				stats.published++
			case outcomeRetry:
				stats.retried++
			case outcomeParked:
				stats.parked++
			}
		}
		return nil
	})
	return stats, err
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.events.Resolve(event)
	if err != nil {
		return outcomeParked, s.park(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, s.eventFields(event, nil))
	}

	fields := s.eventFields(event, resolved)
	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return outcomeParked, s.park(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return outcomeParked, s.park(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", pubErr.Error())
	s.logg.Warn(warnCtx, "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

// park copies the row into outbox_dlq and stops further attempts on it.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(warnCtx, "outbox event parked in dlq")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dead.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.topicOf(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, messageFor(event, resolved.Envelope))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// messageFor keeps the stored envelope as the message body so consumers can
// dedupe on eventId.
func messageFor(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"version":        strconv.Itoa(envelope.Version),
			"occurred_at":    envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"order_id":       event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < ceiling {
		return next
	}
	return ceiling
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

// topicPublisher adapts *pubsub.Publisher to the publisher interface.
type topicPublisher struct {
	p *gcppubsub.Publisher
}

func newTopicPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &topicPublisher{p: p}
}

func (t *topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := t.p.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return res
}
