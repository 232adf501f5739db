package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateJob inserts a new processing job
func (db *DB) CreateJob(ctx context.Context, id uuid.UUID, req types.JobRequest, total int) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal job request: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO optimization_jobs (id, status, total_candidates, request)
		 VALUES ($1, 'processing', $2, $3)`,
		id, total, reqJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// UpdateJobProgress records how many units have been processed. Progress
// never moves backwards.
func (db *DB) UpdateJobProgress(ctx context.Context, id uuid.UUID, processed int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE optimization_jobs SET processed_candidates = GREATEST(processed_candidates, $1)
		 WHERE id = $2 AND status = 'processing'`,
		processed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteJob stores results and marks the job completed
func (db *DB) CompleteJob(ctx context.Context, id uuid.UUID, candidates []types.Candidate) error {
	results, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal job results: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE optimization_jobs
		 SET status = 'completed', processed_candidates = total_candidates, results = $1, completed_at = NOW()
		 WHERE id = $2`,
		results, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob marks the job failed with reason
func (db *DB) FailJob(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE optimization_jobs SET status = 'failed', error = $1, completed_at = NOW() WHERE id = $2`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID, returning nil if it does not exist
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var (
		job     Job
		status  string
		results []byte
		reason  *string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, processed_candidates, total_candidates, results, error, created_at, completed_at
		 FROM optimization_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &status, &job.Processed, &job.Total, &results, &reason, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.Status = types.JobStatus(status)
	if reason != nil {
		job.Error = *reason
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.Candidates); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
	}
	return &job, nil
}
