package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "delivery"),
		attribute.String("customer_email", "ana@example.com"),
		attribute.String("game", "entrega_ya"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "customer_email" {
			t.Fatalf("customer_email must be dropped")
		}
	}
}

func TestLifecycleCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewLifecycle(registry, Config{Namespace: "menuya", Environment: "test"})

	m.OrderTransition("pendiente", "en_preparacion")
	m.OrderTransition("pendiente", "en_preparacion")
	m.AccountTransition("pago_pendiente", "confirmado")
	m.Recompute("pending:cocinero", ResultFailed)
	m.Notification("delivery", ResultOK)

	if got := testutil.ToFloat64(m.orderTransitions.WithLabelValues("pendiente", "en_preparacion")); got != 2 {
		t.Fatalf("expected 2 order transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.accountTransitions.WithLabelValues("pago_pendiente", "confirmado")); got != 1 {
		t.Fatalf("expected 1 account transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.recomputes.WithLabelValues("pending", ResultFailed)); got != 1 {
		t.Fatalf("expected recompute labelled by concern prefix, got %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("delivery", ResultOK)); got != 1 {
		t.Fatalf("expected 1 notification, got %v", got)
	}
}

func TestLifecycleNilSafe(t *testing.T) {
	var m *Lifecycle
	m.OrderTransition("a", "b")
	m.Receipt(ResultFailed)
}

func TestBusinessMetricsOnNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "menuya"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	m.RecordOrderCreated(ctx, "salon")
	m.RecordAccountConfirmed(ctx, "delivery", 1815, 165)
	m.RecordDiscountGranted(ctx, "ahorcado")
	m.RecordDiscountConsumed(ctx)

	var nilMetrics *Metrics
	nilMetrics.RecordAccountConfirmed(ctx, "salon", 0, 0)
}
