package v0

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
	"github.com/logreporter-dev/logreporter/pkg/models"
)

// JobRegistry is the subset of the job manager used by the handlers.
type JobRegistry interface {
	Submit(ctx context.Context, directory, filter string) (*jobs.Job, error)
	Get(ctx context.Context, id jobs.JobID) (*jobs.Job, error)
	List(ctx context.Context) (*jobs.JobList, error)
	Delete(ctx context.Context, id jobs.JobID) error
	Wait(ctx context.Context, id jobs.JobID) (*jobs.Job, error)
}

// SubmitJobRequest is the request body for starting an aggregation job.
type SubmitJobRequest struct {
	LogDirectory     string `json:"logDirectory,omitempty" doc:"Directory containing the log files" example:"/var/log/app"`
	ServiceNameRegex string `json:"serviceNameRegex,omitempty" doc:"Regular expression matched against service names" example:"^auth$"`
}

// SubmitJobInput is the input for starting an aggregation job.
type SubmitJobInput struct {
	Body SubmitJobRequest
}

// SubmitJobResponse is the response for job creation.
type SubmitJobResponse struct {
	ID     string `json:"id" yaml:"id" doc:"Unique job identifier"`
	Status string `json:"status" yaml:"status" doc:"Current job status"`
}

// JobInput identifies a single job.
type JobInput struct {
	JobID string `path:"jobId" doc:"Job identifier"`
}

// JobResponse is the full view of a job.
type JobResponse struct {
	ID               string                 `json:"id" yaml:"id" doc:"Unique job identifier"`
	LogDirectory     string                 `json:"logDirectory" yaml:"logDirectory" doc:"Directory that was aggregated"`
	ServiceNameRegex string                 `json:"serviceNameRegex" yaml:"serviceNameRegex" doc:"Service name filter"`
	Status           string                 `json:"status" yaml:"status" doc:"Current job status (pending, running, completed, faulted)"`
	Progress         jobs.JobProgress       `json:"progress" yaml:"progress" doc:"Files parsed so far"`
	Result           []models.ServiceReport `json:"result,omitzero" yaml:"result,omitempty" doc:"Per-service reports (when completed)"`
	Fault            string                 `json:"fault,omitempty" yaml:"fault,omitempty" doc:"Fault reason (when faulted)"`
	CreatedAt        string                 `json:"createdAt" yaml:"createdAt" doc:"Job creation timestamp"`
	UpdatedAt        string                 `json:"updatedAt" yaml:"updatedAt" doc:"Last update timestamp"`
	CompletedAt      string                 `json:"completedAt,omitempty" yaml:"completedAt,omitempty" doc:"Completion timestamp"`
}

// RegisterJobsEndpoints registers the aggregation job endpoints.
func RegisterJobsEndpoints(api huma.API, pathPrefix string, registry JobRegistry) {
	registerSubmitJobEndpoint(api, pathPrefix, registry)
	registerGetJobEndpoint(api, pathPrefix, registry)
	registerListJobsEndpoint(api, pathPrefix, registry)
	registerDeleteJobEndpoint(api, pathPrefix, registry)
}

func registerSubmitJobEndpoint(api huma.API, pathPrefix string, registry JobRegistry) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-job",
		Method:        http.MethodPost,
		Path:          pathPrefix + "/jobs",
		Summary:       "Submit an aggregation job",
		Description:   "Start a background job that aggregates the log files of every service matching the filter.",
		Tags:          []string{"jobs"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *SubmitJobInput) (*Response[SubmitJobResponse], error) {
		job, err := registry.Submit(ctx, input.Body.LogDirectory, input.Body.ServiceNameRegex)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrInvalidDirectory):
				return nil, huma.Error400BadRequest("log directory does not exist or is not a directory")
			case errors.Is(err, jobs.ErrInvalidFilter):
				return nil, huma.Error400BadRequest("service name filter is not a valid regular expression")
			case errors.Is(err, jobs.ErrManagerClosed):
				return nil, huma.Error503ServiceUnavailable("server is shutting down")
			}
			return nil, huma.Error500InternalServerError("failed to submit job", err)
		}

		return &Response[SubmitJobResponse]{
			Body: SubmitJobResponse{
				ID:     string(job.ID),
				Status: string(job.Status),
			},
		}, nil
	})
}

func registerGetJobEndpoint(api huma.API, pathPrefix string, registry JobRegistry) {
	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/jobs/{jobId}",
		Summary:     "Get job status",
		Description: "Get the status, progress and, once completed, the per-service reports of a job.",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, input *JobInput) (*Response[JobResponse], error) {
		job, err := registry.Get(ctx, jobs.JobID(input.JobID))
		if err != nil {
			return nil, jobError(err, input.JobID)
		}
		return &Response[JobResponse]{Body: NewJobResponse(job)}, nil
	})
}

func registerListJobsEndpoint(api huma.API, pathPrefix string, registry JobRegistry) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/jobs",
		Summary:     "List jobs",
		Description: "List all known jobs with per-status counts.",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, _ *struct{}) (*Response[jobs.JobList], error) {
		list, err := registry.List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list jobs", err)
		}
		return &Response[jobs.JobList]{Body: *list}, nil
	})
}

func registerDeleteJobEndpoint(api huma.API, pathPrefix string, registry JobRegistry) {
	huma.Register(api, huma.Operation{
		OperationID: "delete-job",
		Method:      http.MethodDelete,
		Path:        pathPrefix + "/jobs/{jobId}",
		Summary:     "Delete a job",
		Description: "Forget a job. A running aggregation finishes in the background and its result is discarded.",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, input *JobInput) (*Response[EmptyResponse], error) {
		if err := registry.Delete(ctx, jobs.JobID(input.JobID)); err != nil {
			return nil, jobError(err, input.JobID)
		}
		return &Response[EmptyResponse]{
			Body: EmptyResponse{Message: "Job deleted successfully"},
		}, nil
	})
}

func jobError(err error, id string) error {
	if errors.Is(err, jobs.ErrJobNotFound) {
		return huma.Error404NotFound("job not found: " + id)
	}
	return huma.Error500InternalServerError("failed to get job", err)
}

// NewJobResponse converts a job to its API representation.
func NewJobResponse(job *jobs.Job) JobResponse {
	resp := JobResponse{
		ID:               string(job.ID),
		LogDirectory:     job.Directory,
		ServiceNameRegex: job.ServiceNameFilter,
		Status:           string(job.Status),
		Progress:         job.Progress,
		Result:           job.Result,
		Fault:            job.Fault,
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Status == jobs.JobStatusCompleted && resp.Result == nil {
		resp.Result = []models.ServiceReport{}
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
