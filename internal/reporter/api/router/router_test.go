package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/internal/reporter/api/router"
	"github.com/logreporter-dev/logreporter/internal/reporter/engine"
	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
	"github.com/logreporter-dev/logreporter/internal/reporter/telemetry"
)

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	shutdown, metrics, err := telemetry.InitMetrics("test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	manager := jobs.NewManager(engine.New())
	t.Cleanup(manager.Close)

	mux := http.NewServeMux()
	router.NewHumaAPI(mux, manager, metrics, &v0.VersionBody{Version: "test"})
	return mux
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestPrometheusHandler(t *testing.T) {
	mux := newMux(t)

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/v0/jobs/unknown").Code)
	assert.Equal(t, http.StatusOK, serve(mux, http.MethodGet, "/v0/health").Code)

	w := serve(mux, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code, "Expected status OK for /metrics endpoint")

	body := w.Body.String()
	assert.Contains(t, body, "logreporter_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "logreporter_http_requests_total")
	assert.Contains(t, body, "logreporter_http_errors_total")
	assert.Contains(t, body, `path="/v0/jobs/{jobId}"`)
	assert.NotContains(t, body, `path="/v0/health"`)
}

func TestNotFoundAndRoot(t *testing.T) {
	mux := newMux(t)

	w := serve(mux, http.MethodGet, "/jobs")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "/v0/jobs")

	w = serve(mux, http.MethodGet, "/")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/docs", w.Header().Get("Location"))
}

func TestOpenAPIDocument(t *testing.T) {
	mux := newMux(t)

	w := serve(mux, http.MethodGet, "/openapi.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "submit-job")
	assert.Contains(t, w.Body.String(), "list-jobs")
}
