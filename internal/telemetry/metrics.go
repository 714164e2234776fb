// Package telemetry records session lifecycle metrics through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "mentalbank"

// End reasons
const (
	ReasonStop   = "stop"
	ReasonPause  = "pause"
	ReasonUpdate = "update"
)

// Config selects where metrics are exported.
type Config struct {
	Endpoint string
	Insecure bool
	Version  string
}

// Metrics holds the session instruments. A nil *Metrics records nothing.
type Metrics struct {
	provider      *sdkmetric.MeterProvider
	sessionsStart metric.Int64Counter
	sessionsEnd   metric.Int64Counter
	conflicts     metric.Int64Counter
	durationHist  metric.Float64Histogram
	earningsTotal metric.Float64Counter
}

// New exports to an OTLP collector when cfg.Endpoint is set; otherwise the
// instruments come from the global (no-op by default) meter provider.
func New(ctx context.Context, cfg Config) (*Metrics, error) {
	if cfg.Endpoint == "" {
		return newMetrics(nil, otel.GetMeterProvider().Meter(serviceName))
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	return NewWithReader(sdkmetric.NewPeriodicReader(exp), res)
}

// NewWithReader builds a private meter provider around reader.
func NewWithReader(reader sdkmetric.Reader, res *resource.Resource) (*Metrics, error) {
	opts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	return newMetrics(provider, provider.Meter(serviceName))
}

func newMetrics(provider *sdkmetric.MeterProvider, meter metric.Meter) (*Metrics, error) {
	m := &Metrics{provider: provider}
	var err error

	m.sessionsStart, err = meter.Int64Counter(
		"mbb_sessions_started_total",
		metric.WithDescription("Sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating started counter: %w", err)
	}

	m.sessionsEnd, err = meter.Int64Counter(
		"mbb_sessions_ended_total",
		metric.WithDescription("Sessions ended, by reason"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ended counter: %w", err)
	}

	m.conflicts, err = meter.Int64Counter(
		"mbb_session_start_conflicts_total",
		metric.WithDescription("Starts rejected because the task already had an active session"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conflict counter: %w", err)
	}

	m.durationHist, err = meter.Float64Histogram(
		"mbb_session_duration_seconds",
		metric.WithDescription("Duration of ended sessions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	m.earningsTotal, err = meter.Float64Counter(
		"mbb_session_earnings_usd",
		metric.WithDescription("Earnings of ended sessions"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating earnings counter: %w", err)
	}

	return m, nil
}

// SessionStarted counts a newly opened session.
func (m *Metrics) SessionStarted(ctx context.Context, resumed bool) {
	if m == nil {
		return
	}
	m.sessionsStart.Add(ctx, 1, metric.WithAttributes(attribute.Bool("resumed", resumed)))
}

// StartConflict counts a start rejected by the one-active-session rule.
func (m *Metrics) StartConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1)
}

// SessionEnded records the final figures of a session.
func (m *Metrics) SessionEnded(ctx context.Context, reason string, durationSeconds int64, earningsUSD *float64) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(attribute.String("reason", reason))
	m.sessionsEnd.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(durationSeconds), opt)
	if earningsUSD != nil {
		m.earningsTotal.Add(ctx, *earningsUSD, opt)
	}
}

// Shutdown flushes pending metrics.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
