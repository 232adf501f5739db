package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

func TestNewCollector_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector()
		NewCollector()
	})
}

func TestObserveRequest(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest(http.MethodGet, "GET /api/booking", http.StatusOK, 10*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "GET /api/booking", http.StatusOK, 20*time.Millisecond)
	c.ObserveRequest(http.MethodPost, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "GET /api/booking", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "unmatched", "404")))
}

func TestDomainCounters(t *testing.T) {
	c := NewCollector()

	c.JobFinished(types.JobStatusCompleted, 3*time.Second)
	c.JobFinished(types.JobStatusFailed, time.Second)
	c.JobFinished(types.JobStatusCompleted, time.Second)
	c.BookingCompleted(types.ServiceResume)
	c.OptimizerRun("timeout")
	c.UsageChecked(false)
	c.RateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsFinished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bookings.WithLabelValues("resume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.optimizerRuns.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.usageDecisions.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.BookingCompleted(types.ServiceConsult)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `launchworthy_bookings_completed_total{service="consult"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
