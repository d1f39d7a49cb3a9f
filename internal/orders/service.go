package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads and the order state machine.
type Service interface {
	List(ctx context.Context, actor types.Actor, params pagination.Params) (*OrderListResult, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	MarkPaid(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	MarkShipped(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	UpdateShippingAddress(ctx context.Context, actor types.Actor, id uuid.UUID, patch types.AddressPatch) (*OrderDTO, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	inventory StockAdjuster
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, inventory StockAdjuster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, inventory: inventory, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params pagination.Params) (*OrderListResult, error) {
	filter := ListFilter{}
	if !actor.Can(enums.CapabilityOrdersReadAll) {
		userID := actor.UserID
		filter.UserID = &userID
	}
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := &OrderListResult{Orders: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Orders = append(out.Orders, ToDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.UserID) && !actor.Can(enums.CapabilityOrdersReadAll) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := ToDTO(order)
	return &dto, nil
}

func (s *service) MarkPaid(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.fulfil(ctx, actor, id, enums.EventOrderPaid, func(order *models.Order, now time.Time) ([]string, error) {
		switch {
		case order.IsPaid:
			return nil, invalidState(order, "order is already paid")
		case order.Status.IsTerminal():
			return nil, invalidState(order, fmt.Sprintf("order is %s", order.Status))
		}
		order.IsPaid = true
		order.PaidAt = &now
		order.Status = enums.OrderStatusProcessing
		return []string{"is_paid", "paid_at", "status"}, nil
	})
}

func (s *service) MarkShipped(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.fulfil(ctx, actor, id, enums.EventOrderShipped, func(order *models.Order, now time.Time) ([]string, error) {
		if order.Status != enums.OrderStatusProcessing {
			return nil, invalidState(order, "only processing orders can be shipped")
		}
		order.ShippedAt = &now
		order.Status = enums.OrderStatusShipped
		return []string{"shipped_at", "status"}, nil
	})
}

func (s *service) MarkDelivered(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.fulfil(ctx, actor, id, enums.EventOrderDelivered, func(order *models.Order, now time.Time) ([]string, error) {
		if order.Status.IsTerminal() {
			return nil, invalidState(order, fmt.Sprintf("order is %s", order.Status))
		}
		order.IsDelivered = true
		order.DeliveredAt = &now
		order.Status = enums.OrderStatusDelivered
		return []string{"is_delivered", "delivered_at", "status"}, nil
	})
}

// fulfil runs an admin transition and emits a status-change event with it.
func (s *service) fulfil(ctx context.Context, actor types.Actor, id uuid.UUID, event enums.OutboxEventType, apply func(*models.Order, time.Time) ([]string, error)) (*OrderDTO, error) {
	if !actor.Can(enums.CapabilityOrdersFulfill) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "fulfilment requires an admin or manager")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		from := order.Status
		now := s.now().UTC()
		columns, err := apply(order, now)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, repo, order, from, columns...); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				Status:    order.Status,
				ChangedAt: now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	dto := ToDTO(result)
	return &dto, nil
}

// Cancel restores every line's stock and flips the order to cancelled in one transaction.
func (s *service) Cancel(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return invalidState(order, fmt.Sprintf("cannot cancel an order that is %s", order.Status))
		}

		from := order.Status
		now := s.now().UTC()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		if err := s.transition(ctx, repo, order, from, "status", "cancelled_at"); err != nil {
			return err
		}

		deltas := make([]catalog.StockDelta, 0, len(order.Items))
		units := 0
		for _, line := range order.Items {
			deltas = append(deltas, catalog.StockDelta{ProductID: line.ProductID, Delta: line.Quantity})
			units += line.Quantity
		}
		if err := s.inventory.ApplyStockDeltas(ctx, tx, deltas); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderCancelledEvent{
				OrderID:        order.ID,
				UserID:         order.UserID,
				CancelledAt:    now,
				RestockedUnits: units,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	dto := ToDTO(result)
	return &dto, nil
}

// UpdateShippingAddress merges the provided fields into the stored address.
func (s *service) UpdateShippingAddress(ctx context.Context, actor types.Actor, id uuid.UUID, patch types.AddressPatch) (*OrderDTO, error) {
	if patch.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one shipping address field is required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return invalidState(order, fmt.Sprintf("cannot edit an order that is %s", order.Status))
		}
		order.ShippingAddress = order.ShippingAddress.Merge(patch)
		if err := s.transition(ctx, repo, order, order.Status, "shipping_address"); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	dto := ToDTO(result)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, actor types.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the order owner can change it")
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, columns ...string) error {
	ok, err := repo.Transition(ctx, order, from, columns...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	return nil
}

func invalidState(order *models.Order, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, message).
		WithDetails(map[string]any{"orderId": order.ID, "status": order.Status})
}

func mapTxErr(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order transaction failed")
}
