// Package version holds build information injected at link time.
package version

// Set with -ldflags "-X github.com/logreporter-dev/logreporter/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
