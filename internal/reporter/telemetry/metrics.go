// Package telemetry sets up OpenTelemetry metrics exported in Prometheus
// format for the log reporter service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Namespace prefixes every metric name.
const Namespace = "logreporter"

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "logreporter-api"

// Metrics holds the instruments recorded by the API and the job registry.
type Metrics struct {
	// Requests counts HTTP requests by method, path and status code.
	Requests metric.Int64Counter
	// ErrorCount counts HTTP responses with a status code of 400 or above.
	ErrorCount metric.Int64Counter
	// RequestDuration records HTTP request duration in seconds.
	RequestDuration metric.Float64Histogram

	// JobsSubmitted counts accepted aggregation jobs.
	JobsSubmitted metric.Int64Counter
	// JobsFinished counts jobs reaching a terminal status, by status.
	JobsFinished metric.Int64Counter
	// JobsActive tracks jobs that have not reached a terminal status.
	JobsActive metric.Int64UpDownCounter
	// JobDuration records the time from submission to terminal status.
	JobDuration metric.Float64Histogram
	// FilesParsed counts log files parsed by all jobs.
	FilesParsed metric.Int64Counter

	registry *prometheus.Registry
}

// NewMetrics registers all instruments with the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Requests, err = meter.Int64Counter(
		Namespace+"_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.ErrorCount, err = meter.Int64Counter(
		Namespace+"_http_errors_total",
		metric.WithDescription("Total HTTP responses with an error status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_errors_total: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		Namespace+"_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.JobsSubmitted, err = meter.Int64Counter(
		Namespace+"_jobs_submitted_total",
		metric.WithDescription("Total aggregation jobs accepted"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs_submitted_total: %w", err)
	}

	m.JobsFinished, err = meter.Int64Counter(
		Namespace+"_jobs_finished_total",
		metric.WithDescription("Total aggregation jobs finished, by status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs_finished_total: %w", err)
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		Namespace+"_jobs_active",
		metric.WithDescription("Aggregation jobs currently running"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs_active: %w", err)
	}

	m.JobDuration, err = meter.Float64Histogram(
		Namespace+"_job_duration_seconds",
		metric.WithDescription("Aggregation job duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("create job_duration: %w", err)
	}

	m.FilesParsed, err = meter.Int64Counter(
		Namespace+"_files_parsed_total",
		metric.WithDescription("Total log files parsed"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create files_parsed_total: %w", err)
	}

	return m, nil
}

// PrometheusHandler serves the metrics registry in the Prometheus text format.
func (m *Metrics) PrometheusHandler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InitMetrics builds a meter provider backed by a dedicated Prometheus
// registry, starts Go runtime instrumentation and registers the service
// instruments. The returned function shuts the provider down.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, nil, fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	shutdown := func(ctx context.Context) error {
		return provider.Shutdown(ctx)
	}

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("start runtime instrumentation: %w", err), shutdown(context.Background()))
	}

	metrics, err := NewMetrics(provider.Meter(ServiceName))
	if err != nil {
		return nil, nil, errors.Join(err, shutdown(context.Background()))
	}
	metrics.registry = registry

	return shutdown, metrics, nil
}
