package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/kingfisher"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Scanner metrics
	FramesPolledTotal       metric.Int64Counter
	ScansEmittedTotal       metric.Int64Counter
	ScansSuppressedTotal    metric.Int64Counter
	RedirectsScheduledTotal metric.Int64Counter
	CameraErrorsTotal       metric.Int64Counter
	ActiveSessions          metric.Int64UpDownCounter
	DecodeDuration          metric.Float64Histogram

	// History metrics
	HistoryRecordsTotal      metric.Int64Counter
	PersistenceFailuresTotal metric.Int64Counter

	// Generator metrics
	CodesGeneratedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Scanner metrics
	m.FramesPolledTotal, _ = meter.Int64Counter(
		"kingfisher.scanner.frames.polled.total",
		metric.WithDescription("Total number of frames captured and passed to the decoder"),
		metric.WithUnit("{frame}"),
	)

	m.ScansEmittedTotal, _ = meter.Int64Counter(
		"kingfisher.scanner.scans.emitted.total",
		metric.WithDescription("Total number of scan events emitted"),
		metric.WithUnit("{scan}"),
	)

	m.ScansSuppressedTotal, _ = meter.Int64Counter(
		"kingfisher.scanner.scans.suppressed.total",
		metric.WithDescription("Total number of decoded payloads suppressed as duplicates"),
		metric.WithUnit("{scan}"),
	)

	m.RedirectsScheduledTotal, _ = meter.Int64Counter(
		"kingfisher.scanner.redirects.scheduled.total",
		metric.WithDescription("Total number of redirects scheduled for scanned URLs"),
		metric.WithUnit("{redirect}"),
	)

	m.CameraErrorsTotal, _ = meter.Int64Counter(
		"kingfisher.scanner.camera.errors.total",
		metric.WithDescription("Total number of failed attempts to acquire a camera stream"),
		metric.WithUnit("{error}"),
	)

	m.ActiveSessions, _ = meter.Int64UpDownCounter(
		"kingfisher.scanner.sessions.active",
		metric.WithDescription("Number of scan sessions holding a camera stream"),
		metric.WithUnit("{session}"),
	)

	m.DecodeDuration, _ = meter.Float64Histogram(
		"kingfisher.scanner.decode.duration",
		metric.WithDescription("Duration of frame decode operations"),
		metric.WithUnit("ms"),
	)

	// History metrics
	m.HistoryRecordsTotal, _ = meter.Int64Counter(
		"kingfisher.history.records.total",
		metric.WithDescription("Total number of history entries recorded"),
		metric.WithUnit("{entry}"),
	)

	m.PersistenceFailuresTotal, _ = meter.Int64Counter(
		"kingfisher.persistence.failures.total",
		metric.WithDescription("Total number of failed reads or writes of persisted state"),
		metric.WithUnit("{error}"),
	)

	// Generator metrics
	m.CodesGeneratedTotal, _ = meter.Int64Counter(
		"kingfisher.generator.codes.total",
		metric.WithDescription("Total number of QR codes generated"),
		metric.WithUnit("{code}"),
	)

	return m
}
