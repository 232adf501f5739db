package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// Repository persists job records. *db.DB is the PostgreSQL implementation.
type Repository interface {
	CreateJob(ctx context.Context, id uuid.UUID, req types.JobRequest, total int) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, processed int) error
	CompleteJob(ctx context.Context, id uuid.UUID, candidates []types.Candidate) error
	FailJob(ctx context.Context, id uuid.UUID, reason string) error
	GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error)
}

var _ Repository = (*db.DB)(nil)

// MemoryRepository keeps jobs in process memory
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*db.Job
	now  func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[uuid.UUID]*db.Job),
		now:  time.Now,
	}
}

// CreateJob implements Repository
func (r *MemoryRepository) CreateJob(_ context.Context, id uuid.UUID, _ types.JobRequest, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &db.Job{
		ID:        id,
		Status:    types.JobStatusProcessing,
		Total:     total,
		CreatedAt: r.now(),
	}
	return nil
}

// UpdateJobProgress implements Repository. Progress never moves backwards.
func (r *MemoryRepository) UpdateJobProgress(_ context.Context, id uuid.UUID, processed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if ok && job.Status == types.JobStatusProcessing && processed > job.Processed {
		job.Processed = processed
	}
	return nil
}

// CompleteJob implements Repository
func (r *MemoryRepository) CompleteJob(_ context.Context, id uuid.UUID, candidates []types.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	now := r.now()
	job.Status = types.JobStatusCompleted
	job.Processed = job.Total
	job.Candidates = candidates
	job.CompletedAt = &now
	return nil
}

// FailJob implements Repository
func (r *MemoryRepository) FailJob(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	now := r.now()
	job.Status = types.JobStatusFailed
	job.Error = reason
	job.CompletedAt = &now
	return nil
}

// GetJob implements Repository. It returns nil, nil for unknown ids.
func (r *MemoryRepository) GetJob(_ context.Context, id uuid.UUID) (*db.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *job
	return &out, nil
}
