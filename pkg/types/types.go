package types

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/logreporter-dev/logreporter/internal/reporter/database"
	"github.com/logreporter-dev/logreporter/internal/reporter/engine"
)

// StoreFactory creates the job store. It receives the configured database URL,
// which may be empty.
type StoreFactory func(ctx context.Context, databaseURL string) (database.Store, error)

// RunnerFactory wraps or replaces the aggregation runner.
type RunnerFactory func(base engine.Runner) engine.Runner

// AppOptions contains optional extension points for the server app.
type AppOptions struct {
	// StoreFactory replaces the default store selection.
	StoreFactory StoreFactory

	// RunnerFactory wraps the default aggregation engine.
	RunnerFactory RunnerFactory

	// HTTPServerFactory is an optional function to create a server that adds new API routes.
	HTTPServerFactory HTTPServerFactory

	// OnHTTPServerCreated is an optional callback that receives the created server
	// (potentially extended via HTTPServerFactory).
	OnHTTPServerCreated func(Server)
}

// Server represents the HTTP server and provides access to the Huma API
// and HTTP mux for registering new routes and handlers.
type Server interface {
	// HumaAPI returns the Huma API instance, allowing registration of new routes
	// that will appear in the OpenAPI documentation.
	HumaAPI() huma.API

	// Mux returns the HTTP ServeMux, allowing registration of custom HTTP handlers
	Mux() *http.ServeMux

	// Start begins listening for incoming HTTP requests
	Start() error

	// Shutdown gracefully shuts down the server
	Shutdown(ctx context.Context) error
}

// HTTPServerFactory is a function type that creates a server implementation that
// adds new API routes and handlers.
type HTTPServerFactory func(base Server) Server
