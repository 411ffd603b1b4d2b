package logparse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/logreporter-dev/logreporter/pkg/models"
)

var (
	// ErrFileNameInvalid is returned when a log file name has no dot-delimited extension.
	ErrFileNameInvalid = errors.New("log file name is invalid")

	// ErrFileUnreadable is returned when a log file cannot be opened or read.
	ErrFileUnreadable = errors.New("log file is unreadable")
)

const (
	readBufferSize = 64 * 1024

	// MaxLineLength bounds the bytes kept for one line. Longer lines are
	// counted but carry no event.
	MaxLineLength = 1024 * 1024

	// ctxCheckInterval is how many lines are scanned between cancellation checks.
	ctxCheckInterval = 1024
)

// ServiceName returns the part of a file name before its first dot.
// It fails with ErrFileNameInvalid when the name has no dot at all.
func ServiceName(fileName string) (string, error) {
	service, _, ok := strings.Cut(fileName, ".")
	if !ok {
		return "", fmt.Errorf("%w: %q has no extension", ErrFileNameInvalid, fileName)
	}
	return service, nil
}

// ParseFile reads the log file at path and folds its lines into a FileReport.
func ParseFile(ctx context.Context, path string) (*models.FileReport, error) {
	service, err := ServiceName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	report := &models.FileReport{
		Path:           path,
		ServiceName:    service,
		CategoryCounts: make(map[string]int),
	}

	reader := bufio.NewReaderSize(f, readBufferSize)
	for {
		line, overlong, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, err)
		}

		report.TotalLines++
		if report.TotalLines%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if overlong {
			continue
		}

		entry, ok := ParseLine(line)
		if !ok {
			continue
		}
		report.ParsedLines++
		observe(report, entry)
	}

	return report, nil
}

// readLine returns the next line without its terminator. Fragments past
// MaxLineLength are drained and dropped, and overlong is set. io.EOF is
// returned only when no bytes remain.
func readLine(r *bufio.Reader) (line string, overlong bool, err error) {
	var buf []byte
	for {
		fragment, isPrefix, readErr := r.ReadLine()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) && (len(buf) > 0 || overlong) {
				return string(buf), overlong, nil
			}
			return "", false, readErr
		}
		if !overlong {
			if len(buf)+len(fragment) > MaxLineLength {
				overlong = true
				buf = nil
			} else {
				buf = append(buf, fragment...)
			}
		}
		if !isPrefix {
			return string(buf), overlong, nil
		}
	}
}

// observe folds one entry into the running min/max span and the histogram.
func observe(report *models.FileReport, entry Entry) {
	ts := entry.Timestamp
	if report.EarliestEntry == nil || ts.Before(*report.EarliestEntry) {
		earliest := ts
		report.EarliestEntry = &earliest
	}
	if report.LatestEntry == nil || ts.After(*report.LatestEntry) {
		latest := ts
		report.LatestEntry = &latest
	}
	if entry.Category != "" {
		report.CategoryCounts[entry.Category]++
	}
}
