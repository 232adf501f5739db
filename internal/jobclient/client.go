// Package jobclient reaches the optimization job service over HTTP.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// DefaultTimeout bounds each call. Status checks are short; the poll loop
// owns the overall budget.
const DefaultTimeout = 10 * time.Second

// Client implements optimizer.JobClient against the /api/optimize endpoints
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ optimizer.JobClient = (*Client)(nil)

// New creates a client rooted at baseURL. A non-empty apiKey is sent as a
// bearer token.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("job service returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Submit implements optimizer.JobClient
func (c *Client) Submit(ctx context.Context, req types.JobRequest) (types.SubmitResponse, error) {
	var out types.SubmitResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("failed to encode job request: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, "/api/optimize", bytes.NewReader(body), &out); err != nil {
		return out, err
	}
	if out.JobID == "" {
		return out, fmt.Errorf("job service response missing jobId")
	}
	return out, nil
}

// Status implements optimizer.JobClient
func (c *Client) Status(ctx context.Context, jobID string) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/optimize/status/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

// Results implements optimizer.JobClient
func (c *Client) Results(ctx context.Context, jobID string) (types.ResultsResponse, error) {
	var out types.ResultsResponse
	err := c.do(ctx, http.MethodGet, "/api/optimize/results/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("job service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read job service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode job service response: %w", err)
	}
	return nil
}
