package db

import (
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/google/uuid"
)

// Job represents an optimization job record
type Job struct {
	ID          uuid.UUID         `json:"id"`
	Status      types.JobStatus   `json:"status"`
	Processed   int               `json:"processed_candidates"`
	Total       int               `json:"total_candidates"`
	Candidates  []types.Candidate `json:"candidates,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// State key prefixes for the wizard_state table
const (
	StateBooking   = "booking"
	StateOptimizer = "optimizer"
	StateUsage     = "usage"
)
