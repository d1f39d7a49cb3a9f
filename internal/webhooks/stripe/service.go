package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Provider scopes stored event ids.
const Provider = "stripe"

type paymentCompleter interface {
	CompleteCardPayment(ctx context.Context, payment checkout.CardPayment) (*checkout.CardResult, error)
}

type ServiceParams struct {
	SigningSecret string
	Guard         *IdempotencyGuard
	Payments      paymentCompleter
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
}

// Service verifies and reconciles Stripe deliveries.
type Service struct {
	secret   string
	guard    *IdempotencyGuard
	payments paymentCompleter
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if strings.TrimSpace(params.SigningSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signing secret required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment completer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		secret:   params.SigningSecret,
		guard:    params.Guard,
		payments: params.Payments,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Handle verifies payload against signature and processes the event. A nil
// error means the delivery should be acknowledged; any error is either an
// invalid signature or a transient failure worth a gateway retry.
func (s *Service) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.secret)
	if err != nil {
		s.metrics.IncWebhookEvent("", metrics.OutcomeBadRequest)
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "rejected stripe webhook")
		return pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid webhook signature")
	}

	eventType := string(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": eventType,
	})
	if !fulfils(event.Type) {
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeIgnored)
		return nil
	}

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeRetry)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency guard")
	}
	if seen {
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeDuplicate)
		s.logg.Info(ctx, "duplicate stripe event skipped")
		return nil
	}

	outcome, err := s.completeSession(ctx, event)
	if err != nil {
		if releaseErr := s.guard.Release(ctx, event.ID); releaseErr != nil {
			s.logg.Error(ctx, "failed to release stripe event mark", releaseErr)
		}
		s.metrics.IncWebhookEvent(eventType, metrics.OutcomeRetry)
		s.logg.Error(ctx, "stripe webhook processing failed", err)
		return err
	}
	s.metrics.IncWebhookEvent(eventType, outcome)
	return nil
}

func (s *Service) completeSession(ctx context.Context, event stripe.Event) (string, error) {
	var session stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil {
		s.logg.Error(ctx, "undecodable checkout session", errors.New("invalid session payload"))
		return metrics.OutcomeReconcile, nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_session_id":     session.ID,
		"stripe_payment_status": string(session.PaymentStatus),
	})
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// Delayed methods complete unpaid; async_payment_succeeded follows.
		s.logg.Info(ctx, "checkout session completed without payment, waiting")
		return metrics.OutcomePending, nil
	}

	cartID, err := sessionCartID(&session)
	if err != nil {
		s.logg.Error(ctx, "checkout session without a usable cart reference", err)
		return metrics.OutcomeReconcile, nil
	}
	ctx = s.logg.WithCartID(ctx, cartID.String())

	result, err := s.payments.CompleteCardPayment(ctx, checkout.CardPayment{
		SessionID:   session.ID,
		CartID:      cartID,
		AmountTotal: pricing.FromMinorUnits(session.AmountTotal),
		Shipping:    checkout.ShippingFromMetadata(session.Metadata),
	})
	switch {
	case err == nil:
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		// Paid but unfulfillable: the cart stays for an operator refund.
		reconCtx := s.logg.WithFields(ctx, map[string]any{
			"consistency": "paid_without_stock",
			"details":     pkgerrors.As(err).Details(),
		})
		s.logg.Error(reconCtx, "card payment could not be converted into an order", err)
		return metrics.OutcomeReconcile, nil
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		// The cart-consumed race comes back as CartMissing, so this is a
		// paid session whose order references vanished data.
		s.logg.Error(s.logg.WithField(ctx, "consistency", "paid_without_order"), "card payment references missing records", err)
		return metrics.OutcomeReconcile, nil
	default:
		return "", err
	}

	if result.CartMissing || result.Order == nil {
		s.logg.Info(ctx, "cart already converted, nothing to do")
		return metrics.OutcomeNoop, nil
	}
	s.logg.Info(s.logg.WithOrderID(ctx, result.Order.ID.String()), "card order created")
	return metrics.OutcomeProcessed, nil
}

// fulfils reports whether an event can carry a paid checkout session.
func fulfils(t stripe.EventType) bool {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return true
	}
	return false
}

func sessionCartID(session *stripe.CheckoutSession) (uuid.UUID, error) {
	ref := strings.TrimSpace(session.ClientReferenceID)
	if ref == "" {
		ref = strings.TrimSpace(session.Metadata[checkout.MetadataCartID])
	}
	if ref == "" {
		return uuid.Nil, errors.New("client reference id missing")
	}
	return uuid.Parse(ref)
}

