// Package reporter wires the log reporter server together.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/logreporter-dev/logreporter/internal/reporter/api"
	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/internal/reporter/config"
	"github.com/logreporter-dev/logreporter/internal/reporter/database"
	"github.com/logreporter-dev/logreporter/internal/reporter/engine"
	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
	"github.com/logreporter-dev/logreporter/internal/reporter/logger"
	"github.com/logreporter-dev/logreporter/internal/reporter/telemetry"
	"github.com/logreporter-dev/logreporter/internal/version"
	"github.com/logreporter-dev/logreporter/pkg/types"
)

// App runs the server until SIGINT or SIGTERM, then shuts down gracefully.
func App(ctx context.Context, opts ...types.AppOptions) error {
	var options types.AppOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	log := logger.New(cfg.LoggerConfig())
	log.Info("starting logreporter",
		"version", version.Version,
		"commit", version.GitCommit,
	)

	store, err := openStore(ctx, cfg, options, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("error closing job store", "error", err)
		}
	}()

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	var runner engine.Runner = engine.New(
		engine.WithMaxParallel(cfg.MaxParallelFiles),
		engine.WithLogger(log.With("component", "engine")),
	)
	if options.RunnerFactory != nil {
		runner = options.RunnerFactory(runner)
	}

	manager := jobs.NewManager(runner,
		jobs.WithStore(store),
		jobs.WithMetrics(metrics),
		jobs.WithLogger(log.With("component", "jobs")),
		jobs.WithTTL(cfg.JobTTL, cfg.CleanupInterval),
	)
	defer manager.Close()

	if _, err := manager.Recover(ctx); err != nil {
		log.Warn("failed to recover interrupted jobs", "error", err)
	}

	versionInfo := &v0.VersionBody{
		Version:   version.Version,
		GitCommit: version.GitCommit,
		BuildTime: version.BuildDate,
	}

	baseServer := api.NewServer(cfg, manager, metrics, versionInfo, log.With("component", "http"))

	var server types.Server = baseServer
	if options.HTTPServerFactory != nil {
		server = options.HTTPServerFactory(baseServer)
	}
	if options.OnHTTPServerCreated != nil {
		options.OnHTTPServerCreated(server)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-sigCtx.Done():
	}
	log.Info("shutting down server")

	sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer scancel()

	if err := server.Shutdown(sctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// Cancels running aggregations and records them as faulted.
	manager.Close()

	log.Info("server exiting")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, options types.AppOptions, log *slog.Logger) (database.Store, error) {
	if options.StoreFactory != nil {
		store, err := options.StoreFactory(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create job store via factory: %w", err)
		}
		return store, nil
	}

	if cfg.DatabaseURL == "" {
		log.Info("no database configured, jobs are kept in memory")
		return database.NewMemoryStore(), nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := database.NewPostgreSQL(dbCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Info("using PostgreSQL job store")
	return store, nil
}
