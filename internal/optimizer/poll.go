package optimizer

import (
	"context"
	"log"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// Poll defaults
const (
	DefaultPollInterval    = time.Second
	DefaultPollMaxAttempts = 60
)

// PollConfig bounds the status polling loop
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Sleep waits between checks; it must return early when ctx is done
	Sleep func(ctx context.Context, d time.Duration) error
	// OnProgress is called after every processing status
	OnProgress func(attempt int, p types.JobProcessing)
}

// DefaultPollConfig checks once a second for up to a minute
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultPollMaxAttempts,
		Sleep:       sleepContext,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultPollMaxAttempts
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollJob waits for jobID to finish. Checks are strictly sequential: the
// next one starts only after the previous returned and the interval
// elapsed. Transport errors are retried until the budget runs out.
//
// The result is a JobCompleted with the fetched candidates, or an error:
// *JobError for a failed or timed out job, *TransportError when the last
// check could not reach the service, or the context error on cancellation.
func PollJob(ctx context.Context, client JobClient, jobID string, cfg PollConfig) (types.JobCompleted, error) {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return types.JobCompleted{}, err
		}

		status, err := client.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return types.JobCompleted{}, ctx.Err()
			}
			lastErr = err
			log.Printf("[optimizer] status check %d/%d for job %s failed: %v", attempt, cfg.MaxAttempts, jobID, err)
			continue
		}

		outcome, err := status.Outcome()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil

		switch o := outcome.(type) {
		case types.JobProcessing:
			if cfg.OnProgress != nil {
				cfg.OnProgress(attempt, o)
			}
		case types.JobFailed:
			return types.JobCompleted{}, &JobError{JobID: jobID, Kind: JobFailed, Reason: o.Reason, Attempts: attempt}
		case types.JobCompleted:
			results, err := client.Results(ctx, jobID)
			if err != nil {
				return types.JobCompleted{}, &TransportError{Op: "retrieve results", JobID: jobID, Cause: err}
			}
			return types.JobCompleted{Candidates: results.Candidates}, nil
		}
	}

	if lastErr != nil {
		return types.JobCompleted{}, &TransportError{Op: "retrieve job status", JobID: jobID, Cause: lastErr}
	}
	return types.JobCompleted{}, &JobError{JobID: jobID, Kind: JobTimeout, Attempts: cfg.MaxAttempts}
}

// FirstCandidateResults turns the first candidate into per-bullet results
func FirstCandidateResults(jobID string, completed types.JobCompleted) *types.OptimizerResults {
	out := &types.OptimizerResults{JobID: jobID, Bullets: []types.BulletResult{}}
	if len(completed.Candidates) == 0 {
		return out
	}

	candidate := completed.Candidates[0]
	for i, original := range candidate.OriginalBullets {
		result := types.BulletResult{Original: original, Revised: []string{}}
		if i < len(candidate.RevisedBullets) {
			result.Revised = append(result.Revised, candidate.RevisedBullets[i]...)
		}
		if i < len(candidate.Scores) && candidate.Scores[i].Valid {
			score := candidate.Scores[i].Value
			result.Score = &score
		}
		out.Bullets = append(out.Bullets, result)
	}
	return out
}
