package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/jobs"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const testJobsKey = "jobs-service-key"

// newJobsEnv serves the in-process job service
func newJobsEnv(t *testing.T) (*testEnv, *jobs.Service) {
	t.Helper()
	svc := jobs.NewService(jobs.NewMemoryRepository(), jobs.TrimRewriter{})
	t.Cleanup(svc.Close)
	env := newTestEnv(t, func(c *Config, d *Deps) {
		c.JobsKey = testJobsKey
		d.Jobs = svc
	})
	return env, svc
}

var sampleJobRequest = types.JobRequest{
	JobDescription: sampleJD,
	Bullets:        []string{"built api in go", "led team"},
	Settings:       types.JobSettings{Tone: types.ToneConcise, MaxLen: 120, Variants: 2},
}

func TestSubmitJob(t *testing.T) {
	env, _ := newJobsEnv(t)

	rec := env.do(t, http.MethodPost, "/api/optimize", testJobsKey, sampleJobRequest)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decodeBody[types.SubmitResponse](t, rec)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, types.JobStatusProcessing, resp.Status)
	assert.Equal(t, 2, resp.TotalCandidates)

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/optimize/status/"+resp.JobID, "", nil)
		return rec.Code == http.StatusOK && decodeBody[types.StatusResponse](t, rec).Status == types.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/api/optimize/results/"+resp.JobID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody[types.ResultsResponse](t, rec)
	require.Len(t, results.Candidates, 1)
	assert.Equal(t, sampleJobRequest.Bullets, results.Candidates[0].OriginalBullets)
	assert.Len(t, results.Candidates[0].RevisedBullets, 2)
}

func TestSubmitJob_Invalid(t *testing.T) {
	env, _ := newJobsEnv(t)

	rec := env.do(t, http.MethodPost, "/api/optimize", testJobsKey, types.JobRequest{JobDescription: "too short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorBody](t, rec)
	assert.Contains(t, body.Fields, "jobDescription")
	assert.Contains(t, body.Fields, "bullets")
}

func TestSubmitJob_RequiresServiceKey(t *testing.T) {
	env, _ := newJobsEnv(t)
	visitor := env.session(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "no key"},
		{name: "wrong key", token: "not-the-key"},
		{name: "visitor session", token: visitor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/optimize", tt.token, sampleJobRequest)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestSubmitJob_RefusedWithoutConfiguredKey(t *testing.T) {
	svc := jobs.NewService(jobs.NewMemoryRepository(), jobs.TrimRewriter{})
	t.Cleanup(svc.Close)
	env := newTestEnv(t, func(_ *Config, d *Deps) {
		d.Jobs = svc
	})

	rec := env.do(t, http.MethodPost, "/api/optimize", "", sampleJobRequest)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Visitors still reach the optimizer through the usage-gated route
	token := env.session(t)
	rec = env.do(t, http.MethodGet, "/api/optimizer", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJobStatus_Unknown(t *testing.T) {
	env, _ := newJobsEnv(t)

	for _, id := range []string{"not-a-uuid", "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b"} {
		rec := env.do(t, http.MethodGet, "/api/optimize/status/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)

		rec = env.do(t, http.MethodGet, "/api/optimize/results/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestJobRoutes_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/optimize"},
		{http.MethodGet, "/api/optimize/status/x"},
		{http.MethodGet, "/api/optimize/results/x"},
		{http.MethodGet, "/api/optimize/events/x"},
	}
	for _, tt := range tests {
		rec := env.do(t, tt.method, tt.path, "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tt.path)
	}
}

func TestJobEvents(t *testing.T) {
	jobsFake := newCompletingJobs()
	env := newTestEnv(t, withJobs(jobsFake))

	req := httptest.NewRequest(http.MethodGet, "/api/optimize/events/job-1", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	complete := strings.Index(body, "event: complete\n")
	require.GreaterOrEqual(t, complete, 0, body)
	assert.Contains(t, body[complete:], `"revised_bullets":[["Built a Go API"],["Led a team of 5"]]`)
}

func TestJobEvents_FailedJob(t *testing.T) {
	jobsFake := &fakeJobs{statuses: []types.StatusResponse{
		{Status: types.JobStatusProcessing, ProcessedCandidates: 0, TotalCandidates: 2},
		{Status: types.JobStatusProcessing, ProcessedCandidates: 1, TotalCandidates: 2},
		{Status: types.JobStatusFailed, Error: "model overloaded"},
	}}
	env := newTestEnv(t, withJobs(jobsFake))

	rec := env.do(t, http.MethodGet, "/api/optimize/events/job-9", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: progress\n"), body)
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "model overloaded")
	assert.Contains(t, body, `"status":502`)
}

func TestJobEvents_UnknownJob(t *testing.T) {
	env, _ := newJobsEnv(t)

	rec := env.do(t, http.MethodGet, "/api/optimize/events/6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
