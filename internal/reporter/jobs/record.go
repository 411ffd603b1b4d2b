package jobs

import (
	"github.com/logreporter-dev/logreporter/internal/reporter/database"
	"github.com/logreporter-dev/logreporter/pkg/models"
)

func toRecord(j *Job) *database.JobRecord {
	rec := &database.JobRecord{
		ID:                string(j.ID),
		Directory:         j.Directory,
		ServiceNameFilter: j.ServiceNameFilter,
		Status:            string(j.Status),
		TotalFiles:        j.Progress.TotalFiles,
		ParsedFiles:       j.Progress.ParsedFiles,
		Result:            models.CloneReports(j.Result),
		Fault:             j.Fault,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		rec.CompletedAt = &t
	}
	return rec
}

func fromRecord(rec *database.JobRecord) *Job {
	j := &Job{
		ID:                JobID(rec.ID),
		Directory:         rec.Directory,
		ServiceNameFilter: rec.ServiceNameFilter,
		Status:            JobStatus(rec.Status),
		Progress: JobProgress{
			TotalFiles:  rec.TotalFiles,
			ParsedFiles: rec.ParsedFiles,
		},
		Result:    models.CloneReports(rec.Result),
		Fault:     rec.Fault,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		j.CompletedAt = &t
	}
	return j
}
