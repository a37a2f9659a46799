package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter defaults.
const (
	DefaultServiceName = "lockstep"
	DefaultEndpoint    = "localhost:4318"
	DefaultInterval    = 60 * time.Second
)

// ProviderConfig selects how metrics leave the process.
type ProviderConfig struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
	ServiceVersion string
}

// ShutdownFunc flushes and stops a meter provider.
type ShutdownFunc func(context.Context) error

// NewMeterProvider returns an OTLP/HTTP backed provider, or a no-op provider
// when cfg is disabled. The shutdown function is never nil.
func NewMeterProvider(ctx context.Context, cfg ProviderConfig, log logr.Logger) (metric.MeterProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		log.V(1).Info("metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	version := cfg.ServiceVersion
	if version == "" {
		version = "unknown"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(DefaultServiceName),
			semconv.ServiceVersion(version),
		),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	log.Info("metrics initialized", "endpoint", endpoint, "insecure", cfg.Insecure, "interval", interval.String())
	return mp, mp.Shutdown, nil
}
