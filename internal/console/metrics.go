package console

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "workflow-console/internal/console"

type metrics struct {
	actions  metric.Int64Counter
	calls    metric.Float64Histogram
	stale    metric.Int64Counter
	rejected metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	meter := mp.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	actions, err := meter.Int64Counter("console.actions",
		metric.WithDescription("User actions accepted by the controller"))
	if err != nil {
		actions, _ = fallback.Int64Counter("console.actions")
	}
	calls, err := meter.Float64Histogram("console.backend.duration",
		metric.WithDescription("Backend call latency"), metric.WithUnit("s"))
	if err != nil {
		calls, _ = fallback.Float64Histogram("console.backend.duration")
	}
	stale, err := meter.Int64Counter("console.logs.stale",
		metric.WithDescription("Log responses discarded because the selection moved on"))
	if err != nil {
		stale, _ = fallback.Int64Counter("console.logs.stale")
	}
	rejected, err := meter.Int64Counter("console.actions.rejected",
		metric.WithDescription("User actions rejected before any call was made"))
	if err != nil {
		rejected, _ = fallback.Int64Counter("console.actions.rejected")
	}
	return &metrics{actions: actions, calls: calls, stale: stale, rejected: rejected}
}

func (m *metrics) action(name string) {
	m.actions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("action", name)))
}

func (m *metrics) reject(name string) {
	m.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("action", name)))
}

func (m *metrics) call(op string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.Record(context.Background(), took.Seconds(), metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) staleLogs() {
	m.stale.Add(context.Background(), 1)
}
