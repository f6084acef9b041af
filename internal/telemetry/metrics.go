// Package telemetry provides the OpenTelemetry metric instruments shared
// across the Observer, Injection Bridge, and Transport packages, grounded on
// the metrics-scope pattern from glyphoxa's internal/observe package.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dotcommander/memengine"

// Metrics holds the instrument set named in spec.md section 5: an
// observer budget-overrun counter, a dropped-observer-event counter for
// transport backpressure, and the injection bridge's latency histogram.
type Metrics struct {
	ObserverBudgetOverruns metric.Int64Counter
	DroppedObserverEvents  metric.Int64Counter
	BridgeLatency          metric.Float64Histogram
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5}

// New creates a fully initialized Metrics struct against the given
// MeterProvider. Returns an error if any instrument creation fails.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.ObserverBudgetOverruns, err = m.Int64Counter("memengine.observer.budget_overruns",
		metric.WithDescription("Count of Observe() calls that exceeded the 2ms hard budget."),
	); err != nil {
		return nil, err
	}
	if met.DroppedObserverEvents, err = m.Int64Counter("memengine.transport.dropped_observer_events",
		metric.WithDescription("Count of events dropped because the observer-side channel was full."),
	); err != nil {
		return nil, err
	}
	if met.BridgeLatency, err = m.Float64Histogram("memengine.inject.bridge.duration",
		metric.WithDescription("Latency of one Agent Injection Bridge Evaluate call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level Metrics instance, creating it on first
// call against otel.GetMeterProvider(). Panics on instrument-creation
// failure, which should not happen against the global no-op provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordBudgetOverrun increments the observer budget-overrun counter.
func (m *Metrics) RecordBudgetOverrun(ctx context.Context, sessionID string) {
	m.ObserverBudgetOverruns.Add(ctx, 1, metric.WithAttributes(attribute.String("session_id", sessionID)))
}

// RecordDroppedEvent increments the dropped-observer-event counter.
func (m *Metrics) RecordDroppedEvent(ctx context.Context, sessionID string) {
	m.DroppedObserverEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("session_id", sessionID)))
}

// RecordBridgeLatency records one Evaluate call's wall-clock duration.
func (m *Metrics) RecordBridgeLatency(ctx context.Context, seconds float64, injected bool) {
	m.BridgeLatency.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("injected", injected)))
}
