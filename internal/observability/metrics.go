// Package observability wires the application's metrics through the
// OpenTelemetry metric API with a Prometheus exporter, exposing them on the
// standard /metrics handler.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the application's instruments.
type Metrics struct {
	meter metric.Meter

	// Job lifecycle (traffic, errors)
	JobsStarted  metric.Int64Counter
	JobsFinished metric.Int64Counter
	JobsActive   metric.Int64UpDownCounter

	// Per-concept image tasks (traffic, errors)
	ImageTasks metric.Int64Counter

	// Text generation latency
	GenerationDuration metric.Float64Histogram
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
// The returned handler serves the scrape endpoint.
func NewMetrics(_ context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("curio-api")
	m := &Metrics{meter: meter}

	m.JobsStarted, err = meter.Int64Counter(
		"curio_jobs_started_total",
		metric.WithDescription("Total number of concept-generation jobs accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsFinished, err = meter.Int64Counter(
		"curio_jobs_finished_total",
		metric.WithDescription("Total number of jobs reaching a terminal status"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"curio_jobs_active",
		metric.WithDescription("Number of jobs currently between accept and terminal status"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ImageTasks, err = meter.Int64Counter(
		"curio_image_tasks_total",
		metric.WithDescription("Total number of per-concept image tasks by provider and outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.GenerationDuration, err = meter.Float64Histogram(
		"curio_generation_duration_seconds",
		metric.WithDescription("Text concept generation latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordJobStarted records a job passing validation and entering the pipeline.
func (m *Metrics) RecordJobStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.JobsStarted.Add(ctx, 1)
	m.JobsActive.Add(ctx, 1)
}

// RecordJobFinished records a job reaching a terminal status.
func (m *Metrics) RecordJobFinished(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.JobsFinished.Add(ctx, 1, metric.WithAttributes(statusAttr(status)))
	m.JobsActive.Add(ctx, -1)
}

// RecordImageTask records one per-concept image task finishing.
func (m *Metrics) RecordImageTask(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.ImageTasks.Add(ctx, 1, metric.WithAttributes(providerAttr(provider), outcomeAttr(outcome)))
}

// RecordGenerationDuration records the latency of one text generation call.
func (m *Metrics) RecordGenerationDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.GenerationDuration.Record(ctx, seconds)
}
