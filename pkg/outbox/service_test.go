package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: uuid.New(), Role: enums.RoleUser},
			Data:          payloads.OrderCreatedEvent{OrderID: orderID},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row, "aggregate_id = ?", orderID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != outbox.CurrentVersion || env.EventID == "" || env.Actor == nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if row.PublishedAt != nil || row.AttemptCount != 0 {
		t.Fatalf("new event should be pending: %+v", row)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderCancelledEvent{},
		}); err != nil {
			t.Fatalf("emit: %v", err)
		}
		return errors.New("abort")
	})

	var count int64
	conn.Model(&models.OutboxEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback to discard event, found %d", count)
	}
}

func TestEmitValidatesInput(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	ctx := context.Background()

	if err := svc.Emit(ctx, nil, outbox.DomainEvent{}); err == nil {
		t.Fatalf("expected transaction required error")
	}
	if err := svc.Emit(ctx, conn, outbox.DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder}); err == nil {
		t.Fatalf("expected unknown event type error")
	}
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	pending := models.OutboxEvent{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	exhausted := models.OutboxEvent{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), AttemptCount: 5}
	for _, e := range []models.OutboxEvent{pending, exhausted} {
		if err := repo.Insert(conn, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 || rows[0].AggregateID != pending.AggregateID {
		t.Fatalf("expected only the pending row, got %+v", rows)
	}

	if err := repo.MarkFailedTx(conn, rows[0].ID, errors.New("broker down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	var reloaded models.OutboxEvent
	conn.First(&reloaded, "id = ?", rows[0].ID)
	if reloaded.AttemptCount != 1 || reloaded.LastError == nil || *reloaded.LastError != "broker down" {
		t.Fatalf("unexpected failed row %+v", reloaded)
	}

	if err := repo.MarkPublishedTx(conn, rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 5)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected nothing left to publish, got %d %v", len(rows), err)
	}
}
