package v0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
)

// DefaultProgressInterval is how often the event stream checks for progress.
const DefaultProgressInterval = 500 * time.Millisecond

// SSEEvent represents a server-sent event.
type SSEEvent struct {
	Type  string       `json:"type"`
	JobID string       `json:"jobId,omitempty"`
	Job   *JobResponse `json:"job,omitempty"`
	Error string       `json:"error,omitempty"`
}

// RegisterJobsSSEHandler registers the job event stream.
// This is registered separately as it uses raw HTTP handlers instead of huma.
func RegisterJobsSSEHandler(
	mux *http.ServeMux,
	pathPrefix string,
	registry JobRegistry,
	interval time.Duration,
) {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	path := "GET " + pathPrefix + "/jobs/{jobId}/events"
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		handleJobEvents(w, r, registry, interval)
	})
}

func handleJobEvents(
	w http.ResponseWriter,
	r *http.Request,
	registry JobRegistry,
	interval time.Duration,
) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	id := jobs.JobID(r.PathValue("jobId"))

	job, err := registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			http.Error(w, "Job not found: "+string(id), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sendEvent := func(event SSEEvent) {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	sendJob := func(eventType string, job *jobs.Job) {
		resp := NewJobResponse(job)
		sendEvent(SSEEvent{Type: eventType, JobID: string(job.ID), Job: &resp})
	}

	sendJob("status", job)
	if job.IsTerminal() {
		sendJob(string(job.Status), job)
		return
	}

	type waitResult struct {
		job *jobs.Job
		err error
	}
	done := make(chan waitResult, 1)
	go func() {
		job, err := registry.Wait(ctx, id)
		done <- waitResult{job: job, err: err}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := job.Progress
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-done:
			switch {
			case res.err == nil:
				sendJob(string(res.job.Status), res.job)
			case errors.Is(res.err, jobs.ErrJobNotFound):
				sendEvent(SSEEvent{Type: "error", JobID: string(id), Error: "job was deleted"})
			case errors.Is(res.err, context.Canceled):
			default:
				sendEvent(SSEEvent{Type: "error", JobID: string(id), Error: "failed to get job"})
			}
			return
		case <-ticker.C:
			current, err := registry.Get(ctx, id)
			if err != nil || current.IsTerminal() || current.Progress == last {
				continue
			}
			last = current.Progress
			sendJob("progress", current)
		}
	}
}
