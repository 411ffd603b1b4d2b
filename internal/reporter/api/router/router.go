// Package router contains API routing logic
package router

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/internal/reporter/telemetry"
)

type middlewareConfig struct {
	skipPaths map[string]bool
}

// MiddlewareOption configures MetricTelemetryMiddleware.
type MiddlewareOption func(*middlewareConfig)

// WithSkipPaths skips instrumentation for full paths or for a final path
// segment such as "/health".
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		for _, p := range paths {
			c.skipPaths[p] = true
		}
	}
}

// routePath prefers the operation pattern so path parameters do not explode
// metric cardinality.
func routePath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.Path != "" {
		return op.Path
	}
	return ctx.URL().Path
}

// MetricTelemetryMiddleware records request count, error count and duration
// for every huma operation.
func MetricTelemetryMiddleware(metrics *telemetry.Metrics, options ...MiddlewareOption) func(huma.Context, func(huma.Context)) {
	cfg := &middlewareConfig{
		skipPaths: make(map[string]bool),
	}
	for _, opt := range options {
		opt(cfg)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		urlPath := ctx.URL().Path
		if cfg.skipPaths[urlPath] || cfg.skipPaths["/"+path.Base(urlPath)] {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		attrs := metric.WithAttributes(
			attribute.String("method", ctx.Method()),
			attribute.String("path", routePath(ctx)),
			attribute.Int("status_code", status),
		)

		metrics.Requests.Add(ctx.Context(), 1, attrs)
		if status >= http.StatusBadRequest {
			metrics.ErrorCount.Add(ctx.Context(), 1, attrs)
		}
		metrics.RequestDuration.Record(ctx.Context(), time.Since(start).Seconds(), attrs)
	}
}

// handle404 returns a problem+json 404 for unknown routes
func handle404(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusNotFound)

	detail := "Endpoint not found. See /docs for the API documentation."
	if !strings.HasPrefix(r.URL.Path, "/v0/") {
		detail = "Endpoint not found. Did you mean '/v0" + r.URL.Path + "'? See /docs for the API documentation."
	}

	errorBody := map[string]any{
		"title":  "Not Found",
		"status": 404,
		"detail": detail,
	}

	// Use JSON marshal to ensure consistent formatting
	jsonData, err := json.Marshal(errorBody)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(jsonData)
}

// NewHumaAPI creates a new Huma API with all routes registered
func NewHumaAPI(mux *http.ServeMux, registry v0.JobRegistry, metrics *telemetry.Metrics, versionInfo *v0.VersionBody) huma.API {
	humaConfig := huma.DefaultConfig("Log Reporter", versionInfo.Version)
	humaConfig.Info.Description = "Asynchronous aggregation of service log files into per-service reports."
	// Disable $schema property in responses: https://github.com/danielgtaylor/huma/issues/230
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	// Create a new API using humago adapter for standard library
	api := humago.New(mux, humaConfig)

	api.OpenAPI().Tags = []*huma.Tag{
		{
			Name:        "jobs",
			Description: "Operations for submitting and inspecting log aggregation jobs",
		},
		{
			Name:        "health",
			Description: "Health check endpoint for monitoring service availability",
		},
		{
			Name:        "ping",
			Description: "Simple ping endpoint for testing connectivity",
		},
		{
			Name:        "version",
			Description: "Version information endpoint for retrieving build and version details",
		},
	}

	if metrics != nil {
		api.UseMiddleware(MetricTelemetryMiddleware(metrics,
			WithSkipPaths("/health", "/metrics", "/ping", "/docs"),
		))
		mux.Handle("/metrics", metrics.PrometheusHandler())
	}

	RegisterRoutes(api, mux, registry, versionInfo)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
			return
		}
		handle404(w, r)
	})
	return api
}
