package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// SSE event names
const (
	eventProgress = "progress"
	eventComplete = "complete"
	eventError    = "error"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer and sends the stream headers
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event with the status the JSON API would use
func (s *SSEWriter) WriteError(err error) {
	s.WriteEvent(eventError, map[string]any{ //nolint:errcheck
		"error":  err.Error(),
		"status": HTTPStatus(err),
	})
}

// progressEvent is the payload of a progress event
type progressEvent struct {
	JobID     string `json:"job_id"`
	Attempt   int    `json:"attempt"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// progressWriter returns a poll progress callback that streams progress events
func (s *SSEWriter) progressWriter(jobID func() string) func(int, types.JobProcessing) {
	return func(attempt int, p types.JobProcessing) {
		s.WriteEvent(eventProgress, progressEvent{ //nolint:errcheck
			JobID:     jobID(),
			Attempt:   attempt,
			Processed: p.Processed,
			Total:     p.Total,
		})
	}
}

// wantsEventStream reports whether the client asked for an SSE response
func wantsEventStream(r *http.Request) bool {
	return r.Header.Get("Accept") == "text/event-stream"
}
