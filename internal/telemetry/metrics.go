// Package telemetry provides OpenTelemetry instruments for the scroll
// synchronizer. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of all lockstep instruments.
const MeterName = "github.com/dshills/lockstep"

// Metrics holds the instruments.
type Metrics struct {
	compileDuration metric.Float64Histogram
	superseded      metric.Int64Counter
	scrolls         metric.Int64Counter
	tables          metric.Int64Counter
	startup         metric.Int64Counter
}

// New creates the instruments on provider. If provider is nil, it returns
// nil (no-op metrics).
func New(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MeterName)

	compileDuration, err := meter.Float64Histogram(
		"lockstep_compile_duration_seconds",
		metric.WithDescription("Duration of document compiles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	superseded, err := meter.Int64Counter(
		"lockstep_render_superseded_total",
		metric.WithDescription("Queued render requests replaced by a newer request"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	scrolls, err := meter.Int64Counter(
		"lockstep_scroll_total",
		metric.WithDescription("Scroll actuator calls by side and result"),
		metric.WithUnit("{scroll}"),
	)
	if err != nil {
		return nil, err
	}

	tables, err := meter.Int64Counter(
		"lockstep_offset_tables_total",
		metric.WithDescription("Offset tables installed by fallback rung"),
		metric.WithUnit("{table}"),
	)
	if err != nil {
		return nil, err
	}

	startup, err := meter.Int64Counter(
		"lockstep_startup_sync_total",
		metric.WithDescription("One-shot startup syncs by outcome"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		compileDuration: compileDuration,
		superseded:      superseded,
		scrolls:         scrolls,
		tables:          tables,
		startup:         startup,
	}, nil
}

// RecordCompile records one compile.
func (m *Metrics) RecordCompile(ctx context.Context, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.compileDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordSuperseded records a dropped intermediate render request.
func (m *Metrics) RecordSuperseded(ctx context.Context) {
	if m == nil {
		return
	}
	m.superseded.Add(ctx, 1)
}

// RecordScroll records one actuator call.
func (m *Metrics) RecordScroll(ctx context.Context, side, result string) {
	if m == nil {
		return
	}
	m.scrolls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("side", side),
		attribute.String("result", result),
	))
}

// RecordTable records an installed offset table.
func (m *Metrics) RecordTable(ctx context.Context, rung string) {
	if m == nil {
		return
	}
	m.tables.Add(ctx, 1, metric.WithAttributes(attribute.String("rung", rung)))
}

// RecordStartup records the outcome of a startup sync ("fired" or "abandoned").
func (m *Metrics) RecordStartup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.startup.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
