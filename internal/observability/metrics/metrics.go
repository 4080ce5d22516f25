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
}

// Metrics exposes application-level instruments.
type Metrics struct {
	distributions     metric.Int64Counter
	commissionAmount  metric.Float64Counter
	eligibilityChecks metric.Int64Counter
	referralLookups   metric.Int64Counter
	settled           metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "triviabees"
	}
	meter := provider.Meter(name)

	distributions, err := meter.Int64Counter("triviabees_commission_distributions_total",
		metric.WithDescription("Commission distribution runs by outcome."))
	if err != nil {
		return nil, err
	}
	commissionAmount, err := meter.Float64Counter("triviabees_commission_amount_total",
		metric.WithDescription("Commission amount credited to uplines."))
	if err != nil {
		return nil, err
	}
	eligibilityChecks, err := meter.Int64Counter("triviabees_eligibility_checks_total")
	if err != nil {
		return nil, err
	}
	referralLookups, err := meter.Int64Counter("triviabees_referral_validations_total")
	if err != nil {
		return nil, err
	}
	settled, err := meter.Int64Counter("triviabees_commission_settled_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("triviabees_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		distributions:     distributions,
		commissionAmount:  commissionAmount,
		eligibilityChecks: eligibilityChecks,
		referralLookups:   referralLookups,
		settled:           settled,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordDistribution counts a distribution run by outcome
// (distributed, replayed, no_upline, failed).
func (m *Metrics) RecordDistribution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.distributions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommissionLevel adds a single level's payout to the amount counter.
func (m *Metrics) RecordCommissionLevel(ctx context.Context, level int, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.Int("level", level))
	m.commissionAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordEligibilityCheck(ctx context.Context, eligible, degraded bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.Bool("eligible", eligible),
		attribute.Bool("degraded", degraded),
	)
	m.eligibilityChecks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordReferralValidation(ctx context.Context, valid bool) {
	if m == nil {
		return
	}
	m.referralLookups.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.Bool("valid", valid))...))
}

func (m *Metrics) RecordSettlement(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.settled.Add(ctx, count)
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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
	"outcome":     {},
	"level":       {},
	"eligible":    {},
	"degraded":    {},
	"valid":       {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
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
