package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/metrics/metricstest"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncOrderCreated("cash")
	m.IncOrderCreated("cash")
	m.IncFailure(StageStock)
	m.IncWebhookEvent("checkout.session.completed", OutcomeProcessed)
	m.ObserveDuration("card", 120*time.Millisecond)

	if got, err := metricstest.CounterValue(reg, "storefront_orders_created_total", map[string]string{"payment_method": "cash"}); err != nil || got != 2 {
		t.Fatalf("orders created = %v, %v", got, err)
	}
	if got, err := metricstest.CounterValue(reg, "storefront_checkout_failures_total", map[string]string{"stage": StageStock}); err != nil || got != 1 {
		t.Fatalf("failures = %v, %v", got, err)
	}
	if got, err := metricstest.CounterValue(reg, "storefront_stripe_webhook_events_total", map[string]string{"type": "checkout.session.completed", "outcome": OutcomeProcessed}); err != nil || got != 1 {
		t.Fatalf("webhook events = %v, %v", got, err)
	}
	if got, err := metricstest.HistogramCount(reg, "storefront_checkout_duration_seconds", map[string]string{"path": "card"}); err != nil || got != 1 {
		t.Fatalf("duration count = %v, %v", got, err)
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.IncOrderCreated("cash")
	m.IncFailure("")
	NewCheckoutMetrics(nil).IncWebhookEvent("", "")
}

func TestEmptyLabelsNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.IncFailure("")
	if got, err := metricstest.CounterValue(reg, "storefront_checkout_failures_total", map[string]string{"stage": "unknown"}); err != nil || got != 1 {
		t.Fatalf("expected unknown stage counter, got %v %v", got, err)
	}
}
