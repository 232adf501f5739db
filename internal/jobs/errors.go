package jobs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// RequestError reports an invalid job request, keyed by JSON field path
type RequestError struct {
	Fields map[string]string
}

func (e *RequestError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid job request: " + strings.Join(parts, "; ")
}

// NotFoundError is returned for unknown or malformed job ids
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// NotReadyError is returned when results are requested for a job that has
// not completed
type NotReadyError struct {
	JobID  string
	Status types.JobStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("job %s has no results (status %s)", e.JobID, e.Status)
}

// RewriteError wraps a rewriter failure for one bullet
type RewriteError struct {
	Index int
	Cause error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite bullet %d: %v", e.Index, e.Cause)
}

func (e *RewriteError) Unwrap() error {
	return e.Cause
}
