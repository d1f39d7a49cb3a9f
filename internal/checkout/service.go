package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	pathCash = "cash"
	pathCard = "card"

	uniqueSourceCartConstraint = "ux_orders_source_cart"
	cartMissingMessage         = "no cart found for this user"
	cartConsumedMessage        = "cart was already checked out"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service converts carts into orders.
type Service interface {
	CheckoutCash(ctx context.Context, actor types.Actor, cartID uuid.UUID, shipping types.Address) (*orders.OrderDTO, error)
	CreateSession(ctx context.Context, actor types.Actor, cartID uuid.UUID, shipping types.Address) (*SessionResult, error)
	CompleteCardPayment(ctx context.Context, payment CardPayment) (*CardResult, error)
}

// SessionResult is what the shopper needs to continue on the hosted page.
type SessionResult struct {
	SessionID string          `json:"sessionId"`
	URL       string          `json:"url"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// CardPayment is a gateway-confirmed payment for a cart.
type CardPayment struct {
	SessionID   string
	CartID      uuid.UUID
	AmountTotal decimal.Decimal
	Shipping    types.Address
}

// CardResult reports what a confirmed payment turned into. CartMissing means
// the cart was already converted (or never existed) and nothing changed.
type CardResult struct {
	Order       *orders.OrderDTO
	CartMissing bool
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	DB       txRunner
	Carts    cart.CartRepository
	Orders   orders.Repository
	Catalog  *catalog.Repository
	Coupons  *coupons.Repository
	Users    userLoader
	Sessions stripe.SessionCreator
	Outbox   outbox.Emitter
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Config   config.CheckoutConfig
}

type service struct {
	tx       txRunner
	carts    cart.CartRepository
	orders   orders.Repository
	catalog  *catalog.Repository
	coupons  *coupons.Repository
	users    userLoader
	sessions stripe.SessionCreator
	outbox   outbox.Emitter
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	cfg      config.CheckoutConfig
	now      func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.DB == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case p.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case p.Users == nil:
		return nil, fmt.Errorf("user loader required")
	case p.Sessions == nil:
		return nil, fmt.Errorf("session creator required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       p.DB,
		carts:    p.Carts,
		orders:   p.Orders,
		catalog:  p.Catalog,
		coupons:  p.Coupons,
		users:    p.Users,
		sessions: p.Sessions,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
		cfg:      p.Config,
		now:      time.Now,
	}, nil
}

// conversion describes the order a cart turns into.
type conversion struct {
	method    enums.PaymentMethod
	status    enums.OrderStatus
	paidAt    *time.Time
	total     decimal.Decimal
	shipping  types.Address
	reference *string
	actor     *outbox.ActorRef
}

func (s *service) CheckoutCash(ctx context.Context, actor types.Actor, cartID uuid.UUID, shipping types.Address) (*orders.OrderDTO, error) {
	ctx = s.logg.WithCartID(ctx, cartID.String())
	order, err := s.run(ctx, pathCash, func(tx *gorm.DB, stage *string) (*models.Order, error) {
		record, err := s.loadOwnedCart(ctx, s.carts.WithTx(tx), actor.UserID, cartID)
		if err != nil {
			return nil, err
		}
		*stage = metrics.StagePricing
		total, err := s.price(ctx, s.coupons.WithTx(tx), record)
		if err != nil {
			return nil, err
		}
		return s.convert(ctx, tx, record, conversion{
			method:   enums.PaymentMethodCash,
			status:   enums.OrderStatusPending,
			total:    total,
			shipping: shipping,
			actor:    &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		}, stage)
	})
	if err != nil {
		return nil, err
	}
	dto := orders.ToDTO(order)
	return &dto, nil
}

func (s *service) CreateSession(ctx context.Context, actor types.Actor, cartID uuid.UUID, shipping types.Address) (*SessionResult, error) {
	ctx = s.logg.WithCartID(ctx, cartID.String())
	record, err := s.loadOwnedCart(ctx, s.carts, actor.UserID, cartID)
	if err != nil {
		return nil, err
	}
	total, err := s.price(ctx, s.coupons, record)
	if err != nil {
		return nil, err
	}
	if pricing.ToMinorUnits(total) <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total is zero, use cash checkout")
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	session, err := s.sessions.CreateSession(ctx, stripe.SessionRequest{
		ClientReferenceID: record.ID.String(),
		AmountMinor:       pricing.ToMinorUnits(total),
		Currency:          s.cfg.Currency,
		ProductName:       "Order from " + user.Name,
		Description:       fmt.Sprintf("Cart contains %d item(s)", len(record.Items)),
		SuccessURL:        s.cfg.SuccessURL,
		CancelURL:         s.cfg.CancelURL,
		CustomerEmail:     user.Email,
		Metadata:          shippingMetadata(record.ID.String(), shipping),
	})
	if err != nil {
		s.metrics.IncFailure(metrics.StageGateway)
		s.logg.Error(ctx, "checkout session creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "failed to create checkout session")
	}
	return &SessionResult{SessionID: session.ID, URL: session.URL, Amount: total, Currency: s.cfg.Currency}, nil
}

// CompleteCardPayment converts the paid cart. The gateway amount is
// authoritative; the order belongs to the cart owner.
func (s *service) CompleteCardPayment(ctx context.Context, payment CardPayment) (*CardResult, error) {
	ctx = s.logg.WithCartID(ctx, payment.CartID.String())
	result := &CardResult{}
	order, err := s.run(ctx, pathCard, func(tx *gorm.DB, stage *string) (*models.Order, error) {
		record, err := s.carts.WithTx(tx).FindByID(ctx, payment.CartID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.CartMissing = true
			return nil, nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		now := s.now().UTC()
		reference := payment.SessionID
		return s.convert(ctx, tx, record, conversion{
			method:    enums.PaymentMethodCard,
			status:    enums.OrderStatusProcessing,
			paidAt:    &now,
			total:     payment.AmountTotal,
			shipping:  payment.Shipping,
			reference: &reference,
		}, stage)
	})
	if consumedElsewhere(err) {
		result.CartMissing = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if order != nil {
		dto := orders.ToDTO(order)
		result.Order = &dto
	}
	return result, nil
}

// consumedElsewhere reports the lost cart-claim race of a concurrent checkout.
func consumedElsewhere(err error) bool {
	e := pkgerrors.As(err)
	return e != nil && e.Code() == pkgerrors.CodeNotFound && e.Message() == cartConsumedMessage
}

// run executes fn in one transaction and records the outcome. A nil order
// with a nil error means nothing was converted.
func (s *service) run(ctx context.Context, path string, fn func(tx *gorm.DB, stage *string) (*models.Order, error)) (*models.Order, error) {
	start := time.Now()
	stage := metrics.StageLoadCart
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = fn(tx, &stage)
		return err
	})
	s.metrics.ObserveDuration(path, time.Since(start))

	if err != nil {
		var commitErr *db.CommitError
		if errors.As(err, &commitErr) {
			stage = metrics.StageCommit
			fields := map[string]any{"consistency": "commit_failed", "checkout_path": path}
			if order != nil {
				fields["order_id"] = order.ID.String()
			}
			s.logg.Error(s.logg.WithFields(ctx, fields), "checkout transaction failed to commit", err)
		}
		s.metrics.IncFailure(stage)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
	if order != nil {
		s.metrics.IncOrderCreated(string(order.PaymentMethodType))
	}
	return order, nil
}

// convert creates the order, sells the stock and consumes the cart inside tx.
func (s *service) convert(ctx context.Context, tx *gorm.DB, record *models.Cart, conv conversion, stage *string) (*models.Order, error) {
	lines := make([]types.OrderLine, 0, len(record.Items))
	deltas := make([]catalog.StockDelta, 0, len(record.Items))
	for _, item := range record.Items {
		lines = append(lines, types.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Price:     item.UnitPrice,
		})
		deltas = append(deltas, catalog.StockDelta{ProductID: item.ProductID, Delta: -item.Quantity})
	}

	tax, shipping := decimal.Zero, decimal.Zero
	order := &models.Order{
		UserID:            record.UserID,
		SourceCartID:      record.ID,
		Items:             lines,
		TaxPrice:          tax,
		ShippingPrice:     shipping,
		TotalOrderPrice:   conv.total.Add(tax).Add(shipping),
		PaymentMethodType: conv.method,
		Status:            conv.status,
		IsPaid:            conv.paidAt != nil,
		PaidAt:            conv.paidAt,
		ShippingAddress:   conv.shipping,
		PaymentReference:  conv.reference,
	}

	*stage = metrics.StageCartClaim
	if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		if pkgerrors.IsUniqueViolation(err, uniqueSourceCartConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, cartConsumedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	*stage = metrics.StageStock
	if err := s.catalog.ApplyStockDeltas(ctx, tx, deltas); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply stock")
	}

	*stage = metrics.StageCartClaim
	deleted, err := s.carts.WithTx(tx).Delete(ctx, record.ID, record.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	if deleted == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, cartConsumedMessage)
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         conv.actor,
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			SourceCartID:  order.SourceCartID,
			PaymentMethod: order.PaymentMethodType,
			Status:        order.Status,
			IsPaid:        order.IsPaid,
			Total:         order.TotalOrderPrice,
			LineCount:     len(lines),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
	}
	return order, nil
}

// loadOwnedCart reports another user's cart as missing.
func (s *service) loadOwnedCart(ctx context.Context, repo cart.CartRepository, userID, cartID uuid.UUID) (*models.Cart, error) {
	record, err := repo.FindByID(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, cartMissingMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, cartMissingMessage)
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return record, nil
}

// price returns the amount to charge for record. A coupon that stopped being
// valid either falls back to the subtotal or fails checkout, per config.
func (s *service) price(ctx context.Context, couponRepo *coupons.Repository, record *models.Cart) (decimal.Decimal, error) {
	lines := pricing.LinesFromCart(record.Items)
	if record.CouponCode == nil {
		return pricing.Subtotal(lines), nil
	}

	coupon, err := couponRepo.FindByCode(ctx, *record.CouponCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if coupon == nil {
		// Deleted since it was applied.
		subtotal := pricing.Subtotal(lines)
		return subtotal, s.couponFallback(ctx, record, subtotal, pricing.ErrCouponInvalid)
	}
	quote := pricing.Price(lines, pricing.CouponFromModel(coupon), s.now())
	if quote.CouponApplied {
		return quote.Total, nil
	}
	return quote.Subtotal, s.couponFallback(ctx, record, quote.Subtotal, quote.CouponRejection)
}

// couponFallback fails checkout for an unusable coupon when configured to,
// otherwise logs it and lets the subtotal stand.
func (s *service) couponFallback(ctx context.Context, record *models.Cart, subtotal decimal.Decimal, rejection error) error {
	if s.cfg.RejectExpiredCoupons() {
		return pkgerrors.New(pkgerrors.CodeValidation, rejection.Error()).
			WithDetails(map[string]any{"coupon": *record.CouponCode})
	}
	warnCtx := s.logg.WithFields(ctx, map[string]any{
		"coupon":    *record.CouponCode,
		"rejection": rejection.Error(),
		"subtotal":  subtotal.String(),
	})
	s.logg.Warn(warnCtx, "coupon no longer valid at checkout, charging subtotal")
	return nil
}
