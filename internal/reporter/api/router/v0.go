package router

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
)

// RegisterRoutes registers all API routes for all versions
// This is the single entry point for all route registration
func RegisterRoutes(
	api huma.API,
	mux *http.ServeMux,
	registry v0.JobRegistry,
	versionInfo *v0.VersionBody,
) {
	registerVersionRoutes(api, mux, "/v0", registry, versionInfo)
}

func registerVersionRoutes(
	api huma.API,
	mux *http.ServeMux,
	pathPrefix string,
	registry v0.JobRegistry,
	versionInfo *v0.VersionBody,
) {
	registerCommonEndpoints(api, pathPrefix, versionInfo)
	v0.RegisterJobsEndpoints(api, pathPrefix, registry)
	v0.RegisterJobsSSEHandler(mux, pathPrefix, registry, v0.DefaultProgressInterval)
}

// registerCommonEndpoints registers health, ping and version endpoints
func registerCommonEndpoints(
	api huma.API,
	pathPrefix string,
	versionInfo *v0.VersionBody,
) {
	v0.RegisterHealthEndpoint(api, pathPrefix)
	v0.RegisterPingEndpoint(api, pathPrefix)
	v0.RegisterVersionEndpoint(api, pathPrefix, versionInfo)
}
