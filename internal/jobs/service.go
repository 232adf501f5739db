// Package jobs runs optimization jobs in process: each job rewrites a set of
// resume bullets against a job description in the background.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/parsing"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const (
	// DefaultConcurrency bounds concurrent rewrites within one job
	DefaultConcurrency = 4
	// DefaultJobTimeout bounds a whole job
	DefaultJobTimeout = 2 * time.Minute
)

// Observer is notified when jobs finish
type Observer interface {
	JobFinished(status types.JobStatus, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) JobFinished(types.JobStatus, time.Duration) {}

// Service accepts jobs and processes them in background goroutines. It
// implements optimizer.JobClient.
type Service struct {
	repo        Repository
	rewriter    Rewriter
	validate    *validator.Validate
	observer    Observer
	concurrency int
	timeout     time.Duration

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ optimizer.JobClient = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithConcurrency sets how many bullets of one job are rewritten at once
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithJobTimeout sets the deadline for a single job
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithObserver sets the job completion observer
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService returns a Service. Call Close to stop and wait for running jobs.
func NewService(repo Repository, rewriter Rewriter, opts ...Option) *Service {
	base, cancel := context.WithCancel(context.Background())
	s := &Service{
		repo:        repo,
		rewriter:    rewriter,
		validate:    newValidator(),
		observer:    noopObserver{},
		concurrency: DefaultConcurrency,
		timeout:     DefaultJobTimeout,
		base:        base,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Submit validates req, records a new job and starts processing it.
// Progress is counted in bullets.
func (s *Service) Submit(ctx context.Context, req types.JobRequest) (types.SubmitResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.SubmitResponse{}, requestError(err)
	}

	id := uuid.New()
	total := len(req.Bullets)
	if err := s.repo.CreateJob(ctx, id, req, total); err != nil {
		return types.SubmitResponse{}, fmt.Errorf("failed to create job: %w", err)
	}
	log.Printf("[jobs] accepted job %s with %d bullets", id, total)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(id, req)
	}()

	return types.SubmitResponse{
		JobID:           id.String(),
		Status:          types.JobStatusProcessing,
		TotalCandidates: total,
	}, nil
}

// Status reports a job's progress
func (s *Service) Status(ctx context.Context, jobID string) (types.StatusResponse, error) {
	job, err := s.get(ctx, jobID)
	if err != nil {
		return types.StatusResponse{}, err
	}
	return types.StatusResponse{
		JobID:               job.ID.String(),
		Status:              job.Status,
		ProcessedCandidates: job.Processed,
		TotalCandidates:     job.Total,
		Error:               job.Error,
	}, nil
}

// Results returns the candidates of a completed job
func (s *Service) Results(ctx context.Context, jobID string) (types.ResultsResponse, error) {
	job, err := s.get(ctx, jobID)
	if err != nil {
		return types.ResultsResponse{}, err
	}
	if job.Status != types.JobStatusCompleted {
		return types.ResultsResponse{}, &NotReadyError{JobID: jobID, Status: job.Status}
	}
	return types.ResultsResponse{JobID: job.ID.String(), Candidates: job.Candidates}, nil
}

// Close cancels running jobs and waits for them to record their outcome
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) get(ctx context.Context, jobID string) (*db.Job, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, &NotFoundError{JobID: jobID}
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return nil, &NotFoundError{JobID: jobID}
	}
	return job, nil
}

func (s *Service) process(id uuid.UUID, req types.JobRequest) {
	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()
	start := time.Now()

	candidate, err := s.run(ctx, id, req)
	// Outcome writes must land even after the job context is done
	writeCtx := context.WithoutCancel(ctx)

	if err != nil {
		log.Printf("[jobs] job %s failed: %v", id, err)
		if ferr := s.repo.FailJob(writeCtx, id, failureReason(err)); ferr != nil {
			log.Printf("[jobs] failed to record failure of job %s: %v", id, ferr)
		}
		s.observer.JobFinished(types.JobStatusFailed, time.Since(start))
		return
	}

	if cerr := s.repo.CompleteJob(writeCtx, id, []types.Candidate{candidate}); cerr != nil {
		log.Printf("[jobs] failed to store results of job %s: %v", id, cerr)
		if ferr := s.repo.FailJob(writeCtx, id, "failed to store results"); ferr != nil {
			log.Printf("[jobs] failed to record failure of job %s: %v", id, ferr)
		}
		s.observer.JobFinished(types.JobStatusFailed, time.Since(start))
		return
	}
	log.Printf("[jobs] job %s completed in %s", id, time.Since(start).Round(time.Millisecond))
	s.observer.JobFinished(types.JobStatusCompleted, time.Since(start))
}

func (s *Service) run(ctx context.Context, id uuid.UUID, req types.JobRequest) (types.Candidate, error) {
	settings := settingsWithDefaults(req.Settings)
	parsed := parsing.Parse(req.JobDescription)
	keywords := parsed.Keywords()

	revised := make([]types.RevisedBullet, len(req.Bullets))
	scores := make([]types.Score, len(req.Bullets))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, bullet := range req.Bullets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			variants, err := s.rewriter.Rewrite(gctx, RewriteRequest{
				Bullet:         bullet,
				JobDescription: req.JobDescription,
				JobTitle:       parsed.JobTitle,
				Keywords:       keywords,
				Tone:           settings.Tone,
				MaxLen:         settings.MaxLen,
				Variants:       settings.Variants,
			})
			if err != nil {
				return &RewriteError{Index: i, Cause: err}
			}

			variants = finalizeVariants(bullet, variants, settings.MaxLen)
			variants, best := rankVariants(variants, keywords, settings.MaxLen)
			if len(variants) > settings.Variants {
				variants = variants[:settings.Variants]
			}
			revised[i] = variants
			scores[i] = types.Score{Value: best, Valid: true}

			if err := s.repo.UpdateJobProgress(gctx, id, int(done.Add(1))); err != nil {
				log.Printf("[jobs] failed to update progress of job %s: %v", id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.Candidate{}, err
	}

	original := make([]string, len(req.Bullets))
	copy(original, req.Bullets)
	return types.Candidate{
		OriginalBullets: original,
		RevisedBullets:  revised,
		Scores:          scores,
	}, nil
}

// finalizeVariants trims, shortens to maxLen and deduplicates. When nothing
// usable is left the shortened original is returned.
func finalizeVariants(original string, variants []string, maxLen int) []string {
	out := make([]string, 0, len(variants))
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		v = truncateWords(strings.TrimSpace(v), maxLen)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, truncateWords(strings.TrimSpace(original), maxLen))
	}
	return out
}

func settingsWithDefaults(in types.JobSettings) types.JobSettings {
	def := types.DefaultSettings()
	if in.Tone == "" {
		in.Tone = def.Tone
	}
	if in.MaxLen == 0 {
		in.MaxLen = def.MaxLen
	}
	if in.Variants == 0 {
		in.Variants = def.Variants
	}
	return in
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "job timed out"
	case errors.Is(err, context.Canceled):
		return "job cancelled"
	default:
		return err.Error()
	}
}

func requestError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestError{Fields: map[string]string{"request": err.Error()}}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		fields[path] = fieldMessage(fe)
	}
	return &RequestError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
