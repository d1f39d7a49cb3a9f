package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages reported by the checkout orchestrator.
const (
	StageLoadCart  = "load_cart"
	StagePricing   = "pricing"
	StageStock     = "stock"
	StageCartClaim = "cart_claim"
	StageCommit    = "commit"
	StageGateway   = "gateway"
)

// Webhook outcomes.
const (
	OutcomeProcessed  = "processed"
	OutcomeDuplicate  = "duplicate"
	OutcomeIgnored    = "ignored"
	OutcomeNoop       = "noop"
	OutcomePending    = "awaiting_payment"
	OutcomeReconcile  = "reconciliation_failed"
	OutcomeRetry      = "retry"
	OutcomeBadRequest = "invalid_signature"
)

// CheckoutMetrics records checkout and payment reconciliation activity.
type CheckoutMetrics struct {
	ordersCreated *prometheus.CounterVec
	failures      *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders created from carts.",
	}, []string{"payment_method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_failures_total",
		Help: "Checkout attempts that failed, by stage.",
	}, []string{"stage"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_stripe_webhook_events_total",
		Help: "Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Duration of cart to order conversion.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	reg.MustRegister(ordersCreated, failures, webhookEvents, duration)
	return &CheckoutMetrics{
		ordersCreated: ordersCreated,
		failures:      failures,
		webhookEvents: webhookEvents,
		duration:      duration,
	}
}

// IncOrderCreated counts a committed order.
func (m *CheckoutMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncFailure counts a checkout failure at the given stage.
func (m *CheckoutMetrics) IncFailure(stage string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncWebhookEvent counts a webhook delivery.
func (m *CheckoutMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long a conversion took for path (cash or card).
func (m *CheckoutMetrics) ObserveDuration(path string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(path)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
