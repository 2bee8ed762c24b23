package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	Namespace        string
}

// Metrics exposes business-level OTel instruments.
type Metrics struct {
	ordersCreated     metric.Int64Counter
	accountsConfirmed metric.Int64Counter
	billTotals        metric.Float64Histogram
	tips              metric.Float64Histogram
	discountsGranted  metric.Int64Counter
	discountsConsumed metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "menuya"
	}
	meter := provider.Meter(name)

	ordersCreated, err := meter.Int64Counter("menuya_orders_created_total")
	if err != nil {
		return nil, err
	}
	accountsConfirmed, err := meter.Int64Counter("menuya_accounts_confirmed_total")
	if err != nil {
		return nil, err
	}
	billTotals, err := meter.Float64Histogram("menuya_bill_total",
		metric.WithDescription("Total charged per confirmed bill"),
		metric.WithExplicitBucketBoundaries(1000, 5000, 10000, 25000, 50000, 100000),
	)
	if err != nil {
		return nil, err
	}
	tips, err := meter.Float64Histogram("menuya_bill_tip",
		metric.WithDescription("Tip left per confirmed bill"),
	)
	if err != nil {
		return nil, err
	}
	discountsGranted, err := meter.Int64Counter("menuya_discounts_granted_total")
	if err != nil {
		return nil, err
	}
	discountsConsumed, err := meter.Int64Counter("menuya_discounts_consumed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersCreated:     ordersCreated,
		accountsConfirmed: accountsConfirmed,
		billTotals:        billTotals,
		tips:              tips,
		discountsGranted:  discountsGranted,
		discountsConsumed: discountsConsumed,
	}, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

// RecordAccountConfirmed counts a settled bill and observes what it charged.
func (m *Metrics) RecordAccountConfirmed(ctx context.Context, kind string, total, tip float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...)
	m.accountsConfirmed.Add(ctx, 1, attrs)
	m.billTotals.Record(ctx, total, attrs)
	m.tips.Record(ctx, tip, attrs)
}

func (m *Metrics) RecordDiscountGranted(ctx context.Context, game string) {
	if m == nil {
		return
	}
	m.discountsGranted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("game", game))...))
}

func (m *Metrics) RecordDiscountConsumed(ctx context.Context) {
	if m == nil {
		return
	}
	m.discountsConsumed.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":   {},
	"game":   {},
	"role":   {},
	"result": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
