// Package jobs tracks asynchronous log aggregation jobs.
package jobs

import (
	"time"

	"github.com/logreporter-dev/logreporter/pkg/models"
)

// JobID uniquely identifies a job.
type JobID string

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFaulted   JobStatus = "faulted"
)

// JobProgress tracks how many matched files have been parsed.
type JobProgress struct {
	TotalFiles  int `json:"totalFiles" yaml:"totalFiles"`
	ParsedFiles int `json:"parsedFiles" yaml:"parsedFiles"`
}

// Job represents one aggregation request and its outcome.
type Job struct {
	ID                JobID                  `json:"id" yaml:"id"`
	Directory         string                 `json:"logDirectory" yaml:"logDirectory"`
	ServiceNameFilter string                 `json:"serviceNameRegex" yaml:"serviceNameRegex"`
	Status            JobStatus              `json:"status" yaml:"status"`
	Progress          JobProgress            `json:"progress" yaml:"progress"`
	Result            []models.ServiceReport `json:"result" yaml:"result"`
	Fault             string                 `json:"fault,omitempty" yaml:"fault,omitempty"`
	CreatedAt         time.Time              `json:"createdAt" yaml:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt" yaml:"updatedAt"`
	CompletedAt       *time.Time             `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFaulted
}

// Clone returns a deep copy so callers never share state with the registry.
func (j *Job) Clone() *Job {
	out := *j
	out.Result = models.CloneReports(j.Result)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// JobSummary is the list view of a job.
type JobSummary struct {
	ID                JobID       `json:"id" yaml:"id"`
	Directory         string      `json:"logDirectory" yaml:"logDirectory"`
	ServiceNameFilter string      `json:"serviceNameRegex" yaml:"serviceNameRegex"`
	Status            JobStatus   `json:"status" yaml:"status"`
	Progress          JobProgress `json:"progress" yaml:"progress"`
	CreatedAt         time.Time   `json:"createdAt" yaml:"createdAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// JobList is the list of known jobs with per-status counts.
type JobList struct {
	Jobs            []JobSummary `json:"jobs" yaml:"jobs"`
	TotalCount      int          `json:"totalCount" yaml:"totalCount"`
	CompletedCount  int          `json:"completedCount" yaml:"completedCount"`
	FaultedCount    int          `json:"faultedCount" yaml:"faultedCount"`
	InProgressCount int          `json:"inProgressCount" yaml:"inProgressCount"`
}

func (j *Job) summary() JobSummary {
	s := JobSummary{
		ID:                j.ID,
		Directory:         j.Directory,
		ServiceNameFilter: j.ServiceNameFilter,
		Status:            j.Status,
		Progress:          j.Progress,
		CreatedAt:         j.CreatedAt,
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		s.CompletedAt = &t
	}
	return s
}
