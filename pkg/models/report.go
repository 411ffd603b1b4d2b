package models

import (
	"maps"
	"time"
)

// ServiceReport is the merged time span, category histogram and rotation count
// for one service within a job's result set.
type ServiceReport struct {
	ServiceName    string         `json:"serviceName" yaml:"serviceName"`
	EarliestEntry  *time.Time     `json:"earliestEntry,omitempty" yaml:"earliestEntry,omitempty"`
	LatestEntry    *time.Time     `json:"latestEntry,omitempty" yaml:"latestEntry,omitempty"`
	CategoryCounts map[string]int `json:"categoryCounts" yaml:"categoryCounts"`
	RotationCount  int            `json:"rotationCount" yaml:"rotationCount"`
}

// Clone returns a deep copy so callers can hand reports out without sharing maps.
func (r ServiceReport) Clone() ServiceReport {
	out := r
	out.EarliestEntry = cloneTime(r.EarliestEntry)
	out.LatestEntry = cloneTime(r.LatestEntry)
	out.CategoryCounts = make(map[string]int, len(r.CategoryCounts))
	maps.Copy(out.CategoryCounts, r.CategoryCounts)
	return out
}

// CloneReports deep-copies a result set. A nil input stays nil.
func CloneReports(in []ServiceReport) []ServiceReport {
	if in == nil {
		return nil
	}
	out := make([]ServiceReport, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// FileReport is the intermediate report produced for a single log file.
// It has the same shape as ServiceReport, scoped to one file, and never
// carries a rotation count.
type FileReport struct {
	Path           string
	ServiceName    string
	EarliestEntry  *time.Time
	LatestEntry    *time.Time
	CategoryCounts map[string]int
	TotalLines     int
	ParsedLines    int
}

// ServiceReport converts the per-file report into a mergeable service report.
func (f FileReport) ServiceReport() ServiceReport {
	r := ServiceReport{
		ServiceName:    f.ServiceName,
		EarliestEntry:  cloneTime(f.EarliestEntry),
		LatestEntry:    cloneTime(f.LatestEntry),
		CategoryCounts: make(map[string]int, len(f.CategoryCounts)),
	}
	maps.Copy(r.CategoryCounts, f.CategoryCounts)
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
