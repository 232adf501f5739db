// Package formrelay posts completion records to a hosted form endpoint
// that forwards them as notifications.
package formrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
)

// DefaultTimeout bounds each relay call
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 512

// Client is a booking.FormRelay over HTTP
type Client struct {
	endpoint string
	http     *http.Client
}

var _ booking.FormRelay = (*Client)(nil)

// New creates a relay client posting to endpoint
func New(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Error is a relay failure
type Error struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("form relay: %v", e.Cause)
	}
	return fmt.Sprintf("form relay: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Submit implements booking.FormRelay
func (c *Client) Submit(ctx context.Context, fields map[string]string) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return &Error{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
