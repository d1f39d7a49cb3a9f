package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, uuid.NewString()),
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

func ordersResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "orders-topic",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{Version: 1, OccurredAt: time.Now()},
		Payload:  &payloads.OrderCreatedEvent{},
	}
}

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderEvent(t, enums.EventOrderCreated, 0),
		orderEvent(t, enums.EventOrderPaid, 0),
	}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, &fakeDLQRepo{}, nil)

	stats, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if stats.fetched != 2 || stats.published != 1 || stats.retried != 1 || stats.parked != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID: %v", repo.published)
	}
}

func TestPublishSetsEnvelopeAttributes(t *testing.T) {
	event := orderEvent(t, enums.EventOrderShipped, 0)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, &fakeRegistry{resolved: ordersResolved()}, &fakeDLQRepo{}, nil)
	var topics []string
	service.topicOf = func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	}

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(topics) != 1 || topics[0] != "orders-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatalf("message body must be the stored envelope")
	}
	want := map[string]string{
		"event_id":       event.ID.String(),
		"event_type":     string(enums.EventOrderShipped),
		"aggregate_type": string(enums.AggregateOrder),
		"aggregate_id":   event.AggregateID.String(),
		"version":        "1",
	}
	for k, v := range want {
		if msg.Attributes[k] != v {
			t.Fatalf("attribute %s = %q, want %q", k, msg.Attributes[k], v)
		}
	}
	if msg.Attributes["occurred_at"] == "" {
		t.Fatalf("occurred_at attribute missing")
	}
}

func TestProcessBatchParksUnresolvableEvent(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlq, nil)

	stats, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if stats.parked != 1 {
		t.Fatalf("expected parked row, got %+v", stats)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "invalid payload" {
		t.Fatalf("unexpected error message %v", entry.ErrorMessage)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row marked terminal")
	}
}

func TestProcessBatchParksAfterMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCancelled, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlq.entries[0].ErrorReason)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal row must not also be marked failed")
	}
}

func TestProcessBatchParksWhenTopicHasNoPublisher(t *testing.T) {
	event := orderEvent(t, enums.EventOrderDelivered, 0)
	dlq := &fakeDLQRepo{}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, nil, &fakeRegistry{resolved: ordersResolved()}, dlq, nil)
	service.topicOf = func(string) publisher { return nil }

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlq.entries)
	}
}

func TestProcessBatchAbortsOnBookkeepingError(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderEvent(t, enums.EventOrderCreated, 0)},
		publishErr: errors.New("db gone"),
	}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: ordersResolved()}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected bookkeeping error to abort batch")
	}
}

func TestRunStopsWhenReadinessFails(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	service.broker = &fakePubSubClient{err: errors.New("unreachable")}

	if err := service.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness error")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{})
	if service.batchSize != defaultBatchSize || service.maxAttempts != defaultMaxAttempts {
		t.Fatalf("defaults not applied: batch=%d attempts=%d", service.batchSize, service.maxAttempts)
	}
	if service.pollInterval != defaultPollMs*time.Millisecond {
		t.Fatalf("unexpected poll interval %s", service.pollInterval)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if override != nil {
		outboxCfg = *override
	}
	service, err := NewService(ServiceParams{
		Outbox:           outboxCfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		DLQRepository:    dlq,
		PublisherFactory: func(string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct {
	err error
}

func (f *fakePubSubClient) Ping(context.Context) error { return f.err }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.resolved == nil {
		return nil, errors.New("no descriptor")
	}
	resolved := *f.resolved
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
