package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// DefaultExportInterval is how often scanner and history metrics are pushed.
const DefaultExportInterval = 10 * time.Second

// Config describes the metric export pipeline.
type Config struct {
	ServiceName string
	Version     string

	// Interval between exports. Default: DefaultExportInterval
	Interval time.Duration

	// Exporter replaces the OTLP gRPC exporter when set. The OTLP exporter
	// reads OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS and
	// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT.
	Exporter sdkmetric.Exporter
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "kingfisher"
	}
	if c.Interval <= 0 {
		c.Interval = DefaultExportInterval
	}
}

// InitTelemetry installs a global meter provider that periodically exports
// the instruments returned by GetMetrics. The returned function flushes the
// last interval and stops exporting.
func InitTelemetry(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	cfg.applyDefaults()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithFromEnv(), // OTEL_RESOURCE_ATTRIBUTES, OTEL_SERVICE_NAME
		resource.WithHost(),
		resource.WithOSType(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := cfg.Exporter
	if exporter == nil {
		exporter, err = otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	log.Info().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Dur("interval", cfg.Interval).
		Msg("metric export enabled")

	return func(ctx context.Context) error {
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	}, nil
}
