// Package aggregate merges per-file log reports into per-service reports.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/logreporter-dev/logreporter/pkg/models"
)

// Merge combines two reports of the same service. It is commutative and
// associative and never mutates its inputs.
//
// Rotation counts are not summed: they are attached once per service after
// grouping, so during reduction both operands carry zero and the larger
// value is kept.
func Merge(a, b models.ServiceReport) models.ServiceReport {
	out := models.ServiceReport{
		ServiceName:    a.ServiceName,
		EarliestEntry:  minTime(a.EarliestEntry, b.EarliestEntry),
		LatestEntry:    maxTime(a.LatestEntry, b.LatestEntry),
		CategoryCounts: make(map[string]int, max(len(a.CategoryCounts), len(b.CategoryCounts))),
		RotationCount:  max(a.RotationCount, b.RotationCount),
	}
	if out.ServiceName == "" {
		out.ServiceName = b.ServiceName
	}
	for category, n := range a.CategoryCounts {
		out.CategoryCounts[category] += n
	}
	for category, n := range b.CategoryCounts {
		out.CategoryCounts[category] += n
	}
	return out
}

// Reduce groups file reports by service name and folds each group with Merge.
// The result is sorted by service name.
func Reduce(files []models.FileReport) []models.ServiceReport {
	byService := make(map[string]models.ServiceReport)
	for _, f := range files {
		report := f.ServiceReport()
		if existing, ok := byService[f.ServiceName]; ok {
			report = Merge(existing, report)
		}
		byService[f.ServiceName] = report
	}

	out := make([]models.ServiceReport, 0, len(byService))
	for _, report := range byService {
		out = append(out, report)
	}
	slices.SortFunc(out, func(x, y models.ServiceReport) int {
		return cmp.Compare(x.ServiceName, y.ServiceName)
	})
	return out
}

func minTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return clone(b)
	case b == nil:
		return clone(a)
	case b.Before(*a):
		return clone(b)
	default:
		return clone(a)
	}
}

func maxTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return clone(b)
	case b == nil:
		return clone(a)
	case b.After(*a):
		return clone(b)
	default:
		return clone(a)
	}
}

func clone(t *time.Time) *time.Time {
	v := *t
	return &v
}
