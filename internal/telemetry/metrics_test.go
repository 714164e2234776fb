package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetricsRecordsSessionLifecycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewWithReader(reader, nil)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	earned := 12.5
	m.SessionStarted(ctx, false)
	m.SessionStarted(ctx, true)
	m.StartConflict(ctx)
	m.SessionEnded(ctx, ReasonStop, 900, &earned)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	seen := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			seen[metric.Name] = true
			if metric.Name == "mbb_sessions_started_total" {
				sum, ok := metric.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("unexpected data type %T", metric.Data)
				}
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total != 2 {
					t.Fatalf("expected 2 starts, got %d", total)
				}
			}
		}
	}

	for _, name := range []string{
		"mbb_sessions_started_total",
		"mbb_sessions_ended_total",
		"mbb_session_start_conflicts_total",
		"mbb_session_duration_seconds",
		"mbb_session_earnings_usd",
	} {
		if !seen[name] {
			t.Errorf("expected metric %s to be exported", name)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SessionStarted(context.Background(), false)
	m.SessionEnded(context.Background(), ReasonPause, 10, nil)
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
