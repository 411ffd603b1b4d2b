package logparse_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logreporter-dev/logreporter/internal/reporter/logparse"
)

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func TestServiceName(t *testing.T) {
	name, err := logparse.ServiceName("auth.1.log")
	require.NoError(t, err)
	assert.Equal(t, "auth", name)

	_, err = logparse.ServiceName("README")
	assert.ErrorIs(t, err, logparse.ErrFileNameInvalid)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "billing.log",
		"[2024-03-01 10:00:00] [INFO] invoice created for mark@shop.com",
		"garbage line",
		"[2024-03-01 09:00:00] [ERROR] payment failed",
		"[2024-03-02 12:30:00] [INFO] invoice paid",
		"",
	)

	report, err := logparse.ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "billing", report.ServiceName)
	assert.Equal(t, path, report.Path)
	assert.Equal(t, map[string]int{"INFO": 2, "ERROR": 1}, report.CategoryCounts)
	assert.Equal(t, 4, report.TotalLines)
	assert.Equal(t, 3, report.ParsedLines)

	require.NotNil(t, report.EarliestEntry)
	require.NotNil(t, report.LatestEntry)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *report.EarliestEntry)
	assert.Equal(t, time.Date(2024, 3, 2, 12, 30, 0, 0, time.UTC), *report.LatestEntry)
}

func TestParseFile_NoEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "empty.log", "nothing", "here")

	report, err := logparse.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Nil(t, report.EarliestEntry)
	assert.Nil(t, report.LatestEntry)
	assert.Empty(t, report.CategoryCounts)
}

func TestParseFile_InvalidName(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "auth", "[2024-03-01 10:00:00] [INFO] hi")

	_, err := logparse.ParseFile(context.Background(), path)
	assert.ErrorIs(t, err, logparse.ErrFileNameInvalid)
}

func TestParseFile_Unreadable(t *testing.T) {
	_, err := logparse.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.log"))
	assert.ErrorIs(t, err, logparse.ErrFileUnreadable)
}

func TestParseFile_LongLine(t *testing.T) {
	dir := t.TempDir()
	long := "[2024-03-01 11:00:00] [WARN] " + strings.Repeat("x", 2*logparse.MaxLineLength)
	path := writeLog(t, dir, "svc.log",
		"[2024-03-01 10:00:00] [INFO] before",
		long,
		"[2024-03-01 12:00:00] [ERROR] after",
	)

	report, err := logparse.ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalLines)
	assert.Equal(t, 2, report.ParsedLines)
	assert.Equal(t, map[string]int{"INFO": 1, "ERROR": 1}, report.CategoryCounts)
	require.NotNil(t, report.LatestEntry)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *report.LatestEntry)
}

func TestParseFile_LineAtLimitIsKept(t *testing.T) {
	dir := t.TempDir()
	prefix := "[2024-03-01 10:00:00] [INFO] "
	line := prefix + strings.Repeat("y", logparse.MaxLineLength-len(prefix))
	path := writeLog(t, dir, "svc.log", line)

	report, err := logparse.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalLines)
	assert.Equal(t, map[string]int{"INFO": 1}, report.CategoryCounts)
}

func TestParseFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 5000)
	for i := range lines {
		lines[i] = "[2024-03-01 10:00:00] [INFO] tick"
	}
	path := writeLog(t, dir, "busy.log", lines...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := logparse.ParseFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
