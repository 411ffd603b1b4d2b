package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v0 "github.com/logreporter-dev/logreporter/internal/reporter/api/handlers/v0"
	"github.com/logreporter-dev/logreporter/internal/reporter/jobs"
)

// DefaultBaseURL is the API address used when none is configured.
const DefaultBaseURL = "http://localhost:8080/v0"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status: %s, %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is a thin wrapper over the log reporter HTTP API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	token      string
}

// NewClient constructs a client with explicit baseURL and token
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, pathWithQuery string) (*http.Request, error) {
	fullURL := strings.TrimRight(c.BaseURL, "/") + pathWithQuery
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		// read up to 1KB of body for error message
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(errBody)),
		}
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) doJSONRequest(ctx context.Context, method, pathWithQuery string, in, out any) error {
	req, err := c.newRequest(ctx, method, pathWithQuery)
	if err != nil {
		return err
	}
	if in != nil {
		inBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %T: %w", in, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Body = io.NopCloser(bytes.NewReader(inBytes))
		req.ContentLength = int64(len(inBytes))
	}
	return c.doJSON(req, out)
}

// Ping checks connectivity to the API
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSONRequest(ctx, http.MethodGet, "/ping", nil, nil)
}

// GetVersion returns the server's build information.
func (c *Client) GetVersion(ctx context.Context) (*v0.VersionBody, error) {
	var out v0.VersionBody
	if err := c.doJSONRequest(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitJob starts an aggregation of dir for services matching filter.
func (c *Client) SubmitJob(ctx context.Context, dir, filter string) (*v0.SubmitJobResponse, error) {
	in := v0.SubmitJobRequest{LogDirectory: dir, ServiceNameRegex: filter}
	var out v0.SubmitJobResponse
	if err := c.doJSONRequest(ctx, http.MethodPost, "/jobs", in, &out); err != nil {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}
	return &out, nil
}

// GetJob fetches a job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*v0.JobResponse, error) {
	var out v0.JobResponse
	if err := c.doJSONRequest(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs fetches all known jobs.
func (c *Client) ListJobs(ctx context.Context) (*jobs.JobList, error) {
	var out jobs.JobList
	if err := c.doJSONRequest(ctx, http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteJob removes a job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.doJSONRequest(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil)
}

// StreamJobEvents follows the job's event stream and calls onEvent for each
// event until the stream ends, onEvent returns an error, or ctx is done.
func (c *Client) StreamJobEvents(ctx context.Context, id string, onEvent func(v0.SSEEvent) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id)+"/events")
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives the request timeout; ctx bounds it instead.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := c.do(streamClient, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var event v0.SSEEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := onEvent(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return ctx.Err()
}
