// Package database persists aggregation jobs so they survive in-memory
// eviction and process restarts.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/logreporter-dev/logreporter/pkg/models"
)

// Common database errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// JobRecord is the persisted form of an aggregation job.
type JobRecord struct {
	ID                string
	Directory         string
	ServiceNameFilter string
	Status            string
	TotalFiles        int
	ParsedFiles       int
	Result            []models.ServiceReport
	Fault             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// Clone returns a deep copy of the record.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Result != nil {
		out.Result = models.CloneReports(r.Result)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Store is the interface implemented by job stores.
type Store interface {
	// SaveJob inserts the record or replaces the one with the same ID.
	SaveJob(ctx context.Context, rec *JobRecord) error
	// GetJob returns ErrNotFound when no record has the given ID.
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	// ListJobs returns all records ordered by creation time.
	ListJobs(ctx context.Context) ([]*JobRecord, error)
	// DeleteJob returns ErrNotFound when no record has the given ID.
	DeleteJob(ctx context.Context, id string) error
	// Close releases the store's resources.
	Close() error
}

func validate(rec *JobRecord) error {
	if rec == nil || rec.ID == "" {
		return ErrInvalidInput
	}
	return nil
}
