package logparse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrInvalidFilter is returned when a service-name filter does not compile.
var ErrInvalidFilter = errors.New("invalid service name filter")

// CompileFilter compiles a service-name filter expression.
func CompileFilter(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return re, nil
}

// serviceSegment is the grouping key used when filtering: the file name with
// its last extension removed, cut at the first dot.
func serviceSegment(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	segment, _, _ := strings.Cut(stem, ".")
	return segment
}

// isRegularFile reports whether entry is a regular file or a symlink that
// resolves to one. Broken links are skipped.
func isRegularFile(dir string, entry os.DirEntry) bool {
	switch {
	case entry.Type().IsRegular():
		return true
	case entry.Type()&os.ModeSymlink != 0:
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		return err == nil && info.Mode().IsRegular()
	default:
		return false
	}
}

// Scan lists the regular files directly inside dir, including symlinks to
// regular files, whose service segment matches filter. Paths are returned
// sorted.
func Scan(dir string, filter *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !isRegularFile(dir, entry) {
			continue
		}
		if !filter.MatchString(serviceSegment(entry.Name())) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	slices.Sort(paths)
	return paths, nil
}
