package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type memoryExporter struct {
	mu      sync.Mutex
	exports []metricdata.ResourceMetrics
}

func (e *memoryExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *memoryExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *memoryExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports = append(e.exports, *rm)
	return nil
}

func (e *memoryExporter) ForceFlush(context.Context) error { return nil }
func (e *memoryExporter) Shutdown(context.Context) error   { return nil }

func (e *memoryExporter) sum(name string) (int64, metricdata.ResourceMetrics, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.exports) - 1; i >= 0; i-- {
		for _, sm := range e.exports[i].ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != name {
					continue
				}
				data, ok := m.Data.(metricdata.Sum[int64])
				if !ok || len(data.DataPoints) == 0 {
					continue
				}
				return data.DataPoints[0].Value, e.exports[i], true
			}
		}
	}
	return 0, metricdata.ResourceMetrics{}, false
}

func TestInitTelemetry_ExportsScannerMetrics(t *testing.T) {
	ctx := context.Background()
	exporter := &memoryExporter{}

	shutdown, err := InitTelemetry(ctx, Config{
		Version:  "1.2.3",
		Interval: time.Hour,
		Exporter: exporter,
	})
	require.NoError(t, err)

	m := GetMetrics()
	m.ScansEmittedTotal.Add(ctx, 2)
	m.HistoryRecordsTotal.Add(ctx, 1)

	// shutdown flushes the pending interval
	require.NoError(t, shutdown(ctx))

	scans, rm, ok := exporter.sum("kingfisher.scanner.scans.emitted.total")
	require.True(t, ok)
	require.Equal(t, int64(2), scans)

	records, _, ok := exporter.sum("kingfisher.history.records.total")
	require.True(t, ok)
	require.Equal(t, int64(1), records)

	name, ok := rm.Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, "kingfisher", name.AsString())

	version, ok := rm.Resource.Set().Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	require.Equal(t, "1.2.3", version.AsString())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	require.Equal(t, "kingfisher", cfg.ServiceName)
	require.Equal(t, DefaultExportInterval, cfg.Interval)

	cfg = Config{ServiceName: "scanner", Interval: time.Second}
	cfg.applyDefaults()
	require.Equal(t, "scanner", cfg.ServiceName)
	require.Equal(t, time.Second, cfg.Interval)
}
