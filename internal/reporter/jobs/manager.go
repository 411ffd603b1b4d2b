package jobs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/logreporter-dev/logreporter/internal/reporter/database"
	"github.com/logreporter-dev/logreporter/internal/reporter/engine"
	"github.com/logreporter-dev/logreporter/internal/reporter/logparse"
	"github.com/logreporter-dev/logreporter/internal/reporter/telemetry"
	"github.com/logreporter-dev/logreporter/pkg/models"
)

const (
	// DefaultJobTTL is how long terminal jobs are kept in memory.
	DefaultJobTTL = 1 * time.Hour

	// DefaultCleanupInterval is how often expired jobs are evicted.
	DefaultCleanupInterval = 10 * time.Minute

	persistTimeout = 5 * time.Second
)

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidDirectory is returned when the log directory does not exist
	// or is not a directory.
	ErrInvalidDirectory = errors.New("log directory is invalid")

	// ErrInvalidFilter is returned when the service name filter does not compile.
	ErrInvalidFilter = logparse.ErrInvalidFilter

	// ErrManagerClosed is returned by Submit after Close.
	ErrManagerClosed = errors.New("job manager is closed")
)

// Fault messages recorded on faulted jobs. They never carry paths or
// underlying error text.
const (
	FaultCancelled   = "job was cancelled"
	FaultInterrupted = "job was interrupted"
	FaultInternal    = "log aggregation failed"
)

type outcome struct {
	reports []models.ServiceReport
	err     error
}

// entry is the registry's private state for one job.
type entry struct {
	job *Job

	// once guards the single terminal write; done is closed by it.
	once sync.Once
	done chan struct{}

	// persistMu orders store writes for this job against Delete.
	persistMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the durable store. Defaults to an in-memory store.
func WithStore(store database.Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithMetrics enables job instrumentation.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTTL sets how long terminal jobs stay in memory and how often the
// cleanup loop runs. A zero ttl disables eviction.
func WithTTL(ttl, interval time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
		m.cleanupInterval = interval
	}
}

// Manager runs aggregation jobs in the background and keeps their state.
// Reads never wait on a running aggregation.
type Manager struct {
	mu   sync.RWMutex
	jobs map[JobID]*entry

	runner  engine.Runner
	store   database.Store
	metrics *telemetry.Metrics
	logger  *slog.Logger

	ttl             time.Duration
	cleanupInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewManager creates a job manager that runs jobs with runner.
func NewManager(runner engine.Runner, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		jobs:            make(map[JobID]*entry),
		runner:          runner,
		logger:          slog.Default(),
		ttl:             DefaultJobTTL,
		cleanupInterval: DefaultCleanupInterval,
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = database.NewMemoryStore()
	}

	if m.ttl > 0 && m.cleanupInterval > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}
	return m
}

// Submit validates the request, registers a new job and starts it in the
// background. The returned job is already running. Invalid input is rejected
// before any job is created.
func (m *Manager) Submit(ctx context.Context, directory, filter string) (*Job, error) {
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirectory, directory)
	}

	re, err := logparse.CompileFilter(filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e := &entry{
		job: &Job{
			ID:                JobID(uuid.NewString()),
			Directory:         directory,
			ServiceNameFilter: filter,
			Status:            JobStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		done: make(chan struct{}),
	}

	// Held until the initial record is written, so a concurrent Delete
	// cannot run between insert and persist.
	e.persistMu.Lock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		e.persistMu.Unlock()
		return nil, ErrManagerClosed
	}
	m.jobs[e.job.ID] = e
	e.job.Status = JobStatusRunning
	e.job.UpdatedAt = time.Now().UTC()
	snapshot := e.job.Clone()
	m.wg.Add(1)
	m.mu.Unlock()

	m.persist(ctx, toRecord(snapshot))
	e.persistMu.Unlock()

	if m.metrics != nil {
		m.metrics.JobsSubmitted.Add(ctx, 1)
		m.metrics.JobsActive.Add(ctx, 1)
	}
	m.logger.Info("job submitted",
		"job", snapshot.ID,
		"directory", directory,
		"filter", filter,
	)

	results := make(chan outcome, 1)
	go m.run(snapshot.ID, engine.Request{Directory: directory, Filter: re}, results)
	go m.complete(snapshot.ID, results)

	return snapshot, nil
}

// run executes the aggregation and delivers exactly one outcome.
func (m *Manager) run(id JobID, req engine.Request, results chan<- outcome) {
	defer close(results)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job panicked", "job", id, "panic", r)
			results <- outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	reports, err := m.runner.Run(m.ctx, req, func(parsed, total int) {
		m.updateProgress(id, JobProgress{TotalFiles: total, ParsedFiles: parsed})
	})
	results <- outcome{reports: reports, err: err}
}

// complete applies the outcome of a run to its job. It is the only writer of
// terminal state.
func (m *Manager) complete(id JobID, results <-chan outcome) {
	defer m.wg.Done()

	out, ok := <-results
	if !ok {
		out = outcome{err: errors.New("runner exited without a result")}
	}

	m.mu.Lock()
	e, found := m.jobs[id]
	if !found {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.JobsActive.Add(context.Background(), -1)
		}
		m.logger.Debug("job removed before completion", "job", id)
		return
	}

	applied := false
	e.once.Do(func() {
		now := time.Now().UTC()
		job := e.job
		if out.err != nil {
			job.Status = JobStatusFaulted
			job.Fault = faultMessage(out.err)
			job.Result = nil
		} else {
			job.Status = JobStatusCompleted
			job.Result = out.reports
			if job.Result == nil {
				job.Result = []models.ServiceReport{}
			}
		}
		job.UpdatedAt = now
		job.CompletedAt = &now
		applied = true
		close(e.done)
	})
	if !applied {
		m.mu.Unlock()
		return
	}
	snapshot := e.job.Clone()
	e.persistMu.Lock()
	m.mu.Unlock()

	m.persist(context.Background(), toRecord(snapshot))
	e.persistMu.Unlock()

	m.observeCompletion(snapshot, out.err)
}

func (m *Manager) observeCompletion(job *Job, runErr error) {
	if m.metrics != nil {
		ctx := context.Background()
		attrs := metric.WithAttributes(attribute.String("status", string(job.Status)))
		m.metrics.JobsActive.Add(ctx, -1)
		m.metrics.JobsFinished.Add(ctx, 1, attrs)
		m.metrics.JobDuration.Record(ctx, job.CompletedAt.Sub(job.CreatedAt).Seconds(), attrs)
		m.metrics.FilesParsed.Add(ctx, int64(job.Progress.ParsedFiles))
	}

	if runErr != nil {
		m.logger.Warn("job faulted", "job", job.ID, "fault", job.Fault, "error", runErr)
		return
	}
	m.logger.Info("job completed",
		"job", job.ID,
		"services", len(job.Result),
		"files", job.Progress.ParsedFiles,
	)
}

func faultMessage(err error) string {
	switch {
	case errors.Is(err, logparse.ErrFileNameInvalid):
		return logparse.ErrFileNameInvalid.Error()
	case errors.Is(err, logparse.ErrFileUnreadable):
		return logparse.ErrFileUnreadable.Error()
	case errors.Is(err, context.Canceled):
		return FaultCancelled
	default:
		return FaultInternal
	}
}

func (m *Manager) updateProgress(id JobID, progress JobProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok || e.job.IsTerminal() {
		return
	}
	e.job.Progress = progress
	e.job.UpdatedAt = time.Now().UTC()
}

// persist writes rec to the store. Failures are logged; in-memory state
// stays authoritative for the life of the process.
func (m *Manager) persist(ctx context.Context, rec *database.JobRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := m.store.SaveJob(ctx, rec); err != nil {
		m.logger.Error("failed to persist job", "job", rec.ID, "status", rec.Status, "error", err)
	}
}

// Recover faults every stored job left unfinished by a previous process.
// It must run before the first Submit.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	records, err := m.store.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	recovered := 0
	for _, rec := range records {
		if rec.Status == string(JobStatusCompleted) || rec.Status == string(JobStatusFaulted) {
			continue
		}
		now := time.Now().UTC()
		rec.Status = string(JobStatusFaulted)
		rec.Fault = FaultInterrupted
		rec.Result = nil
		rec.UpdatedAt = now
		rec.CompletedAt = &now
		if err := m.store.SaveJob(ctx, rec); err != nil {
			return recovered, fmt.Errorf("failed to save job %s: %w", rec.ID, err)
		}
		recovered++
	}
	if recovered > 0 {
		m.logger.Warn("faulted jobs interrupted by a previous shutdown", "count", recovered)
	}
	return recovered, nil
}

// Get returns a copy of the job. Jobs evicted from memory are read back from
// the store.
func (m *Manager) Get(ctx context.Context, id JobID) (*Job, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	var job *Job
	if ok {
		job = e.job.Clone()
	}
	m.mu.RUnlock()
	if ok {
		return job, nil
	}

	rec, err := m.store.GetJob(ctx, string(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return fromRecord(rec), nil
}

// List returns every known job, oldest first, with per-status counts.
func (m *Manager) List(ctx context.Context) (*JobList, error) {
	byID := make(map[JobID]*Job)

	records, err := m.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	for _, rec := range records {
		byID[JobID(rec.ID)] = fromRecord(rec)
	}

	// In-memory state is newer than anything persisted.
	m.mu.RLock()
	for id, e := range m.jobs {
		byID[id] = e.job.Clone()
	}
	m.mu.RUnlock()

	all := make([]*Job, 0, len(byID))
	for _, job := range byID {
		all = append(all, job)
	}
	slices.SortFunc(all, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	list := &JobList{Jobs: make([]JobSummary, 0, len(all)), TotalCount: len(all)}
	for _, job := range all {
		list.Jobs = append(list.Jobs, job.summary())
		switch job.Status {
		case JobStatusCompleted:
			list.CompletedCount++
		case JobStatusFaulted:
			list.FaultedCount++
		default:
			list.InProgressCount++
		}
	}
	return list, nil
}

// Delete forgets a job. A running aggregation is not interrupted, but its
// outcome is discarded.
func (m *Manager) Delete(ctx context.Context, id JobID) error {
	m.mu.Lock()
	e, inMemory := m.jobs[id]
	if inMemory {
		delete(m.jobs, id)
		e.once.Do(func() { close(e.done) })
	}
	m.mu.Unlock()

	if inMemory {
		e.persistMu.Lock()
		defer e.persistMu.Unlock()
	}

	err := m.store.DeleteJob(ctx, string(id))
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		if !inMemory {
			return ErrJobNotFound
		}
	default:
		return fmt.Errorf("failed to delete job: %w", err)
	}

	m.logger.Info("job deleted", "job", id)
	return nil
}

// Wait blocks until the job reaches a terminal status or ctx is done, then
// returns the job as Get would.
func (m *Manager) Wait(ctx context.Context, id JobID) (*Job, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()

	if ok {
		select {
		case <-e.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Get(ctx, id)
}

// Close cancels running aggregations, waits for their terminal state to be
// recorded and stops the cleanup loop.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// cleanupLoop periodically evicts old terminal jobs from memory.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-m.ttl)
	for id, e := range m.jobs {
		if e.job.IsTerminal() && e.job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			m.logger.Debug("job evicted from memory", "job", id)
		}
	}
}
