package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logreporter-dev/logreporter/internal/reporter/database"
	"github.com/logreporter-dev/logreporter/internal/reporter/engine"
	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
	"github.com/logreporter-dev/logreporter/internal/reporter/logparse"
	"github.com/logreporter-dev/logreporter/pkg/models"
)

// blockingRunner holds every run until release is closed.
type blockingRunner struct {
	release chan struct{}
	reports []models.ServiceReport
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context, _ engine.Request, onProgress engine.ProgressCallback) ([]models.ServiceReport, error) {
	if onProgress != nil {
		onProgress(1, 2)
	}
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.reports, r.err
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, engine.Request, engine.ProgressCallback) ([]models.ServiceReport, error) {
	panic("boom")
}

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newManager(t *testing.T, runner engine.Runner, opts ...jobs.Option) *jobs.Manager {
	t.Helper()
	m := jobs.NewManager(runner, opts...)
	t.Cleanup(m.Close)
	return m
}

func waitFor(t *testing.T, m *jobs.Manager, id jobs.JobID) *jobs.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func TestSubmit_Validation(t *testing.T) {
	m := newManager(t, engine.New())
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "file.log")
	writeLog(t, filepath.Dir(file), "file.log", "")

	tests := []struct {
		name    string
		dir     string
		filter  string
		wantErr error
	}{
		{name: "missing directory", dir: filepath.Join(t.TempDir(), "gone"), filter: ".*", wantErr: jobs.ErrInvalidDirectory},
		{name: "file instead of directory", dir: file, filter: ".*", wantErr: jobs.ErrInvalidDirectory},
		{name: "empty filter", dir: t.TempDir(), filter: "", wantErr: jobs.ErrInvalidFilter},
		{name: "malformed filter", dir: t.TempDir(), filter: "([", wantErr: jobs.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := m.Submit(ctx, tt.dir, tt.filter)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, job)
		})
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestSubmit_ReturnsRunningJob(t *testing.T) {
	runner := newBlockingRunner()
	m := newManager(t, runner)

	job, err := m.Submit(context.Background(), t.TempDir(), "^auth$")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, jobs.JobStatusRunning, job.Status)
	assert.Equal(t, "^auth$", job.ServiceNameFilter)
	assert.Nil(t, job.Result)
	assert.Nil(t, job.CompletedAt)

	require.Eventually(t, func() bool {
		got, err := m.Get(context.Background(), job.ID)
		return err == nil && got.Progress.ParsedFiles == 1
	}, 5*time.Second, 10*time.Millisecond)

	got, err := m.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTerminal())
	assert.Equal(t, jobs.JobProgress{TotalFiles: 2, ParsedFiles: 1}, got.Progress)

	close(runner.release)
	done := waitFor(t, m, job.ID)
	assert.Equal(t, jobs.JobStatusCompleted, done.Status)
}

func TestSubmit_ConcurrentIDsAreDistinct(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	m := newManager(t, runner)
	dir := t.TempDir()

	const n = 50
	ids := make(chan jobs.JobID, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := m.Submit(context.Background(), dir, ".*")
			if assert.NoError(t, err) {
				ids <- job.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[jobs.JobID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	list, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, list.TotalCount)
}

func TestGet_UnknownID(t *testing.T) {
	runner := newBlockingRunner()
	m := newManager(t, runner)

	_, err := m.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)
	close(runner.release)
	waitFor(t, m, job.ID)

	_, err = m.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestJob_AggregatesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "auth.log", "[2024-02-01 10:00:00] [INFO] user ann@corp.com signed in\n[2024-02-01 11:00:00] [INFO] out\n")
	writeLog(t, dir, "auth.1.log", "[2024-01-31 23:59:59] [ERROR] token expired\n")

	m := newManager(t, engine.New())
	job, err := m.Submit(context.Background(), dir, "^auth$")
	require.NoError(t, err)

	done := waitFor(t, m, job.ID)
	require.Equal(t, jobs.JobStatusCompleted, done.Status)
	require.Len(t, done.Result, 1)
	assert.Equal(t, "auth", done.Result[0].ServiceName)
	assert.Equal(t, map[string]int{"INFO": 2, "ERROR": 1}, done.Result[0].CategoryCounts)
	assert.Equal(t, 1, done.Result[0].RotationCount)
	assert.Equal(t, jobs.JobProgress{TotalFiles: 2, ParsedFiles: 2}, done.Progress)
	require.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Fault)
}

func TestJob_ZeroMatchesCompletesEmpty(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "auth.log", "[2024-02-01 10:00:00] [INFO] hi\n")

	m := newManager(t, engine.New())
	job, err := m.Submit(context.Background(), dir, "^nothing$")
	require.NoError(t, err)

	done := waitFor(t, m, job.ID)
	assert.Equal(t, jobs.JobStatusCompleted, done.Status)
	assert.NotNil(t, done.Result)
	assert.Empty(t, done.Result)
}

func TestJob_InvalidFileNameFaults(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "auth.log", "[2024-02-01 10:00:00] [INFO] hi\n")
	writeLog(t, dir, "auth", "[2024-02-01 10:00:00] [INFO] no extension\n")

	m := newManager(t, engine.New())
	job, err := m.Submit(context.Background(), dir, "^auth$")
	require.NoError(t, err)

	done := waitFor(t, m, job.ID)
	assert.Equal(t, jobs.JobStatusFaulted, done.Status)
	assert.Equal(t, logparse.ErrFileNameInvalid.Error(), done.Fault)
	assert.Nil(t, done.Result)
	assert.NotContains(t, done.Fault, dir)
}

func TestJob_RunnerErrorFaultsWithoutDetail(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = errors.New("disk on fire at /secret/path")
	close(runner.release)

	m := newManager(t, runner)
	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)

	done := waitFor(t, m, job.ID)
	assert.Equal(t, jobs.JobStatusFaulted, done.Status)
	assert.Equal(t, jobs.FaultInternal, done.Fault)
}

func TestJob_RunnerPanicFaults(t *testing.T) {
	m := newManager(t, panicRunner{})
	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)

	done := waitFor(t, m, job.ID)
	assert.Equal(t, jobs.JobStatusFaulted, done.Status)
	assert.Equal(t, jobs.FaultInternal, done.Fault)
}

func TestJob_TerminalStateIsStable(t *testing.T) {
	runner := newBlockingRunner()
	runner.reports = []models.ServiceReport{{ServiceName: "auth", CategoryCounts: map[string]int{"INFO": 1}}}
	close(runner.release)

	m := newManager(t, runner)
	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)

	first := waitFor(t, m, job.ID)
	first.Result[0].CategoryCounts["INFO"] = 100

	for range 3 {
		again, err := m.Get(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, jobs.JobStatusCompleted, again.Status)
		assert.Equal(t, 1, again.Result[0].CategoryCounts["INFO"])
		assert.Equal(t, first.CompletedAt, again.CompletedAt)
	}
}

func TestList_Counts(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "bad", "")
	writeLog(t, dir, "ok.log", "[2024-02-01 10:00:00] [INFO] hi\n")

	m := newManager(t, engine.New())
	ctx := context.Background()

	good, err := m.Submit(ctx, dir, "^ok$")
	require.NoError(t, err)
	bad, err := m.Submit(ctx, dir, "^bad$")
	require.NoError(t, err)
	waitFor(t, m, good.ID)
	waitFor(t, m, bad.ID)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)
	assert.Equal(t, 1, list.CompletedCount)
	assert.Equal(t, 1, list.FaultedCount)
	assert.Zero(t, list.InProgressCount)
	require.Len(t, list.Jobs, 2)
	assert.False(t, list.Jobs[1].CreatedAt.Before(list.Jobs[0].CreatedAt))
}

func TestDelete(t *testing.T) {
	runner := newBlockingRunner()
	m := newManager(t, runner)
	ctx := context.Background()

	job, err := m.Submit(ctx, t.TempDir(), ".*")
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := m.Wait(ctx, job.ID)
		waitErr <- err
	}()

	require.NoError(t, m.Delete(ctx, job.ID))
	assert.ErrorIs(t, <-waitErr, jobs.ErrJobNotFound)

	_, err = m.Get(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, m.Delete(ctx, job.ID), jobs.ErrJobNotFound)

	close(runner.release)
	m.Close()

	_, err = m.Get(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestDelete_ConcurrentReadsSeeJobOrNotFound(t *testing.T) {
	runner := newBlockingRunner()
	m := newManager(t, runner)
	ctx := context.Background()

	const readers = 8
	for round := 0; round < 20; round++ {
		job, err := m.Submit(ctx, t.TempDir(), ".*")
		require.NoError(t, err)

		var (
			mu         sync.Mutex
			unexpected []string
			wg         sync.WaitGroup
		)
		record := func(format string, args ...any) {
			mu.Lock()
			unexpected = append(unexpected, fmt.Sprintf(format, args...))
			mu.Unlock()
		}

		start := make(chan struct{})
		deleted := make(chan struct{})
		for r := 0; r < readers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for {
					got, err := m.Get(ctx, job.ID)
					switch {
					case err == nil:
						if got.ID != job.ID {
							record("get returned job %s for %s", got.ID, job.ID)
						}
					case !errors.Is(err, jobs.ErrJobNotFound):
						record("get: %v", err)
					}

					list, err := m.List(ctx)
					if err != nil {
						record("list: %v", err)
					} else {
						for _, s := range list.Jobs {
							if s.ID == job.ID && s.Status != jobs.JobStatusRunning && s.Status != jobs.JobStatusPending {
								record("list returned %s with status %s", s.ID, s.Status)
							}
						}
					}

					select {
					case <-deleted:
						return
					default:
					}
				}
			}()
		}

		close(start)
		require.NoError(t, m.Delete(ctx, job.ID))
		close(deleted)
		wg.Wait()

		assert.Empty(t, unexpected)

		_, err = m.Get(ctx, job.ID)
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)
		list, err := m.List(ctx)
		require.NoError(t, err)
		for _, s := range list.Jobs {
			assert.NotEqual(t, job.ID, s.ID)
		}
	}

	close(runner.release)
	m.Close()

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestGet_FallsBackToStoreAfterEviction(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	store := database.NewMemoryStore()

	m := newManager(t, runner, jobs.WithStore(store), jobs.WithTTL(time.Nanosecond, 5*time.Millisecond))
	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)
	waitFor(t, m, job.ID)

	require.Eventually(t, func() bool {
		rec, err := store.GetJob(context.Background(), string(job.ID))
		return err == nil && rec.Status == string(jobs.JobStatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)

	got, err := m.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)
	assert.NotNil(t, got.Result)
}

func TestWait_ContextCancelled(t *testing.T) {
	runner := newBlockingRunner()
	m := newManager(t, runner)

	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Wait(ctx, job.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_FaultsRunningJobs(t *testing.T) {
	runner := newBlockingRunner()
	store := database.NewMemoryStore()
	m := jobs.NewManager(runner, jobs.WithStore(store))

	job, err := m.Submit(context.Background(), t.TempDir(), ".*")
	require.NoError(t, err)

	m.Close()

	rec, err := store.GetJob(context.Background(), string(job.ID))
	require.NoError(t, err)
	assert.Equal(t, string(jobs.JobStatusFaulted), rec.Status)
	assert.Equal(t, jobs.FaultCancelled, rec.Fault)

	_, err = m.Submit(context.Background(), t.TempDir(), ".*")
	assert.ErrorIs(t, err, jobs.ErrManagerClosed)
}

func TestRecover_FaultsUnfinishedRecords(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	now := time.Now().UTC()
	for i, status := range []string{"running", "pending", "completed"} {
		require.NoError(t, store.SaveJob(ctx, &database.JobRecord{
			ID:        fmt.Sprintf("job-%d", i),
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	m := newManager(t, newBlockingRunner(), jobs.WithStore(store))
	n, err := m.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	job, err := m.Get(ctx, "job-0")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFaulted, job.Status)
	assert.Equal(t, jobs.FaultInterrupted, job.Fault)

	job, err = m.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, job.Status)
}
