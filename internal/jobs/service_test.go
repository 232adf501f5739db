package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const testJD = "Senior Backend Engineer\nRequirements:\n- Experience with Go, PostgreSQL and Kubernetes in production\n"

type rewriterFunc func(ctx context.Context, req RewriteRequest) ([]string, error)

func (f rewriterFunc) Rewrite(ctx context.Context, req RewriteRequest) ([]string, error) {
	return f(ctx, req)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []types.JobStatus
}

func (o *recordingObserver) JobFinished(status types.JobStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) Statuses() []types.JobStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.JobStatus(nil), o.statuses...)
}

func validRequest(bullets ...string) types.JobRequest {
	if len(bullets) == 0 {
		bullets = []string{"Responsible for building services in golang", "Helped migrate the database to postgresql"}
	}
	return types.JobRequest{JobDescription: testJD, Bullets: bullets}
}

func newTestService(t *testing.T, rw Rewriter, opts ...Option) *Service {
	t.Helper()
	svc := NewService(NewMemoryRepository(), rw, opts...)
	t.Cleanup(svc.Close)
	return svc
}

func waitForStatus(t *testing.T, svc *Service, jobID string, want types.JobStatus) types.StatusResponse {
	t.Helper()
	var last types.StatusResponse
	require.Eventually(t, func() bool {
		resp, err := svc.Status(context.Background(), jobID)
		require.NoError(t, err)
		last = resp
		return resp.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestSubmit_ValidatesRequest(t *testing.T) {
	svc := newTestService(t, TrimRewriter{})

	tests := []struct {
		name  string
		req   types.JobRequest
		field string
	}{
		{"short description", types.JobRequest{JobDescription: "too short", Bullets: []string{"x"}}, "jobDescription"},
		{"no bullets", types.JobRequest{JobDescription: testJD}, "bullets"},
		{"empty bullet", types.JobRequest{JobDescription: testJD, Bullets: []string{""}}, "bullets[0]"},
		{"bad tone", types.JobRequest{JobDescription: testJD, Bullets: []string{"x"}, Settings: types.JobSettings{Tone: "snarky"}}, "settings.tone"},
		{"max len too small", types.JobRequest{JobDescription: testJD, Bullets: []string{"x"}, Settings: types.JobSettings{MaxLen: 10}}, "settings.maxLen"},
		{"too many variants", types.JobRequest{JobDescription: testJD, Bullets: []string{"x"}, Settings: types.JobSettings{Variants: 9}}, "settings.variants"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Contains(t, reqErr.Fields, tt.field)
		})
	}
}

func TestSubmit_CompletesWithTrimRewriter(t *testing.T) {
	observer := &recordingObserver{}
	svc := newTestService(t, TrimRewriter{}, WithObserver(observer))

	resp, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusProcessing, resp.Status)
	assert.Equal(t, 2, resp.TotalCandidates)

	status := waitForStatus(t, svc, resp.JobID, types.JobStatusCompleted)
	assert.Equal(t, 2, status.ProcessedCandidates)

	results, err := svc.Results(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.Len(t, results.Candidates, 1)

	candidate := results.Candidates[0]
	assert.Equal(t, validRequest().Bullets, candidate.OriginalBullets)
	require.Len(t, candidate.RevisedBullets, 2)
	require.Len(t, candidate.Scores, 2)
	for i, revised := range candidate.RevisedBullets {
		assert.NotEmpty(t, revised)
		assert.LessOrEqual(t, len(revised), types.DefaultSettings().Variants)
		assert.True(t, candidate.Scores[i].Valid)
	}
	assert.Contains(t, candidate.RevisedBullets[0], "Building services in Go")

	assert.Eventually(t, func() bool {
		return len(observer.Statuses()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []types.JobStatus{types.JobStatusCompleted}, observer.Statuses())
}

func TestSubmit_HonorsSettings(t *testing.T) {
	long := strings.Repeat("word ", 40)
	var seen RewriteRequest
	var mu sync.Mutex
	svc := newTestService(t, rewriterFunc(func(_ context.Context, req RewriteRequest) ([]string, error) {
		mu.Lock()
		seen = req
		mu.Unlock()
		return []string{long, "Short one", "Short one", "Another option"}, nil
	}))

	req := validRequest("Built things")
	req.Settings = types.JobSettings{Tone: types.ToneConfident, MaxLen: 60, Variants: 3}
	resp, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	waitForStatus(t, svc, resp.JobID, types.JobStatusCompleted)

	results, err := svc.Results(context.Background(), resp.JobID)
	require.NoError(t, err)
	revised := results.Candidates[0].RevisedBullets[0]
	assert.Len(t, revised, 3)
	for _, v := range revised {
		assert.LessOrEqual(t, len([]rune(v)), 60)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, types.ToneConfident, seen.Tone)
	assert.Equal(t, 3, seen.Variants)
	assert.Equal(t, "Senior Backend Engineer", seen.JobTitle)
	assert.Contains(t, seen.Keywords, "Kubernetes")
}

func TestSubmit_RewriterFailureFailsJob(t *testing.T) {
	observer := &recordingObserver{}
	svc := newTestService(t, rewriterFunc(func(context.Context, RewriteRequest) ([]string, error) {
		return nil, errors.New("model unavailable")
	}), WithObserver(observer), WithConcurrency(1))

	resp, err := svc.Submit(context.Background(), validRequest("Only bullet here"))
	require.NoError(t, err)

	status := waitForStatus(t, svc, resp.JobID, types.JobStatusFailed)
	assert.Contains(t, status.Error, "rewrite bullet 0")
	assert.Contains(t, status.Error, "model unavailable")

	_, err = svc.Results(context.Background(), resp.JobID)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, types.JobStatusFailed, notReady.Status)
}

func blockingRewriter(started chan<- struct{}) Rewriter {
	return rewriterFunc(func(ctx context.Context, _ RewriteRequest) ([]string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func TestResults_NotReadyWhileProcessing(t *testing.T) {
	started := make(chan struct{}, 1)
	svc := newTestService(t, blockingRewriter(started))

	resp, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	<-started

	status, err := svc.Status(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusProcessing, status.Status)

	_, err = svc.Results(context.Background(), resp.JobID)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, types.JobStatusProcessing, notReady.Status)
}

func TestSubmit_JobTimeout(t *testing.T) {
	svc := newTestService(t, blockingRewriter(nil), WithJobTimeout(20*time.Millisecond))

	resp, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	status := waitForStatus(t, svc, resp.JobID, types.JobStatusFailed)
	assert.Equal(t, "job timed out", status.Error)
}

func TestClose_CancelsRunningJobs(t *testing.T) {
	started := make(chan struct{}, 1)
	repo := NewMemoryRepository()
	svc := NewService(repo, blockingRewriter(started))

	resp, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	<-started

	svc.Close()

	status, err := svc.Status(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, status.Status)
	assert.Equal(t, "job cancelled", status.Error)
}

func TestSubmit_BoundedConcurrency(t *testing.T) {
	var active, peak atomic.Int64
	svc := newTestService(t, rewriterFunc(func(_ context.Context, req RewriteRequest) ([]string, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return []string{req.Bullet}, nil
	}), WithConcurrency(2))

	bullets := make([]string, 8)
	for i := range bullets {
		bullets[i] = "Bullet number " + string(rune('a'+i))
	}
	resp, err := svc.Submit(context.Background(), validRequest(bullets...))
	require.NoError(t, err)

	waitForStatus(t, svc, resp.JobID, types.JobStatusCompleted)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestStatus_UnknownJob(t *testing.T) {
	svc := newTestService(t, TrimRewriter{})

	for _, id := range []string{"not-a-uuid", "6f1c1c1e-4b8e-4d56-9d1b-2f0f7d6f2b11"} {
		_, err := svc.Status(context.Background(), id)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, id, notFound.JobID)
	}
}

func TestService_DrivesOptimizerPolling(t *testing.T) {
	svc := newTestService(t, TrimRewriter{})

	resp, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	cfg := optimizer.PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 200}
	completed, err := optimizer.PollJob(context.Background(), svc, resp.JobID, cfg)
	require.NoError(t, err)
	require.Len(t, completed.Candidates, 1)

	results := optimizer.FirstCandidateResults(resp.JobID, completed)
	require.NotNil(t, results)
	assert.Len(t, results.Bullets, 2)
}

func TestFinalizeVariants(t *testing.T) {
	tests := []struct {
		name     string
		original string
		variants []string
		maxLen   int
		expected []string
	}{
		{"dedupes case-insensitively", "o", []string{"Led team", "led team", " Led team "}, 100, []string{"Led team"}},
		{"drops blanks", "o", []string{"", "  ", "Kept"}, 100, []string{"Kept"}},
		{"truncates at word boundary", "o", []string{"Shipped the new billing pipeline"}, 20, []string{"Shipped the new"}},
		{"falls back to original", "Original bullet", nil, 100, []string{"Original bullet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, finalizeVariants(tt.original, tt.variants, tt.maxLen))
		})
	}
}

func TestMemoryRepository_ProgressNeverMovesBackwards(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.CreateJob(ctx, id, types.JobRequest{}, 4))
	require.NoError(t, repo.UpdateJobProgress(ctx, id, 3))
	require.NoError(t, repo.UpdateJobProgress(ctx, id, 2))

	job, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Processed)

	require.NoError(t, repo.CompleteJob(ctx, id, nil))
	job, err = repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, job.Processed)
	assert.NotNil(t, job.CompletedAt)
}
