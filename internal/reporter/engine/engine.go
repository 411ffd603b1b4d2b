// Package engine runs one log aggregation: scan, parse in parallel, merge,
// then attach rotation counts per service.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/logreporter-dev/logreporter/internal/reporter/aggregate"
	"github.com/logreporter-dev/logreporter/internal/reporter/logparse"
	"github.com/logreporter-dev/logreporter/pkg/models"
)

// Request describes one aggregation run.
type Request struct {
	Directory string
	Filter    *regexp.Regexp
}

// ProgressCallback is called after every parsed file with the number of
// files parsed so far and the total number of matched files.
type ProgressCallback func(parsed, total int)

// Runner defines the interface for running an aggregation.
type Runner interface {
	Run(ctx context.Context, req Request, onProgress ProgressCallback) ([]models.ServiceReport, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxParallel bounds the number of files parsed at once. Zero or less
// means no bound.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		e.maxParallel = n
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine is the concrete Runner.
type Engine struct {
	maxParallel int
	logger      *slog.Logger
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the aggregation described by req. Any file failure fails the
// whole run; no partial result is returned.
func (e *Engine) Run(ctx context.Context, req Request, onProgress ProgressCallback) ([]models.ServiceReport, error) {
	if req.Filter == nil {
		return nil, fmt.Errorf("%w: filter is required", logparse.ErrInvalidFilter)
	}

	paths, err := logparse.Scan(req.Directory, req.Filter)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		e.logger.Info("no log files matched", "directory", req.Directory, "filter", req.Filter.String())
		return []models.ServiceReport{}, nil
	}

	files, err := e.parseAll(ctx, paths, onProgress)
	if err != nil {
		return nil, err
	}

	reports := aggregate.Reduce(files)
	if err := e.attachRotations(ctx, req.Directory, reports); err != nil {
		return nil, err
	}

	e.logger.Debug("aggregation finished",
		"directory", req.Directory,
		"files", len(files),
		"services", len(reports),
	)
	return reports, nil
}

// parseAll fans out one parser per file and waits for all of them.
func (e *Engine) parseAll(ctx context.Context, paths []string, onProgress ProgressCallback) ([]models.FileReport, error) {
	files := make([]models.FileReport, len(paths))

	var (
		progressMu sync.Mutex
		parsed     int
	)

	g, gCtx := errgroup.WithContext(ctx)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	for i, path := range paths {
		g.Go(func() error {
			report, err := logparse.ParseFile(gCtx, path)
			if err != nil {
				e.logger.Warn("failed to parse log file", "file", path, "error", err)
				return err
			}
			files[i] = *report

			if onProgress != nil {
				progressMu.Lock()
				parsed++
				onProgress(parsed, len(paths))
				progressMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// attachRotations counts rotation files once per distinct service.
func (e *Engine) attachRotations(ctx context.Context, dir string, reports []models.ServiceReport) error {
	g, gCtx := errgroup.WithContext(ctx)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	for i := range reports {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			count, err := logparse.CountRotations(dir, reports[i].ServiceName)
			if err != nil {
				return err
			}
			reports[i].RotationCount = count
			return nil
		})
	}
	return g.Wait()
}
