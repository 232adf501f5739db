package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/metrics"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/ratelimit"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeCheckout opens predictable sessions, remembers what each was opened
// for and reports the ones in paid as paid
type fakeCheckout struct {
	mu       sync.Mutex
	sessions map[string]booking.SessionDetails
	paid     map[string]bool
	created  int
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{sessions: map[string]booking.SessionDetails{}, paid: map[string]bool{}}
}

func (f *fakeCheckout) CreateSession(_ context.Context, req booking.CheckoutRequest) (booking.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++

	details := booking.SessionDetails{Purpose: req.Purpose, VisitorID: req.VisitorID}
	var item string
	switch req.Purpose {
	case booking.PurposeCredits:
		item = string(req.Pack.ID)
		details.Pack, details.Credits, details.AmountCents = req.Pack.ID, req.Pack.Credits, req.Pack.PriceCents
	default:
		item = string(req.Service.ID)
		details.Service, details.AmountCents = req.Service.ID, req.Service.PriceCents
	}
	id := "cs_test_" + item
	details.ID = id
	f.sessions[id] = details
	return booking.CheckoutSession{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (f *fakeCheckout) Session(_ context.Context, id string) (booking.SessionDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	details := f.sessions[id]
	details.ID = id
	details.Paid = f.paid[id]
	details.Status = "unpaid"
	if details.Paid {
		details.Status = "paid"
	}
	return details, nil
}

func (f *fakeCheckout) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid[id] = true
}

// testEnv is a server wired to in-memory collaborators
type testEnv struct {
	srv      *Server
	handler  http.Handler
	backend  *store.Memory
	checkout *fakeCheckout
	records  *booking.MemoryRecords
	metrics  *metrics.Collector
}

func newTestEnv(t *testing.T, configure ...func(*Config, *Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		backend:  store.NewMemory(),
		checkout: newFakeCheckout(),
		records:  booking.NewMemoryRecords(),
		metrics:  metrics.NewCollector(),
	}
	cfg := Config{
		Addr:      ":0",
		Session:   config.SessionConfig{Secret: testSecret, TTLHours: 1},
		RateLimit: ratelimit.NewConfig(0, 0),
		Poll: optimizer.PollConfig{
			Interval:    time.Millisecond,
			MaxAttempts: 500,
		},
	}
	deps := Deps{
		Backend:   env.backend,
		Checkout:  env.checkout,
		Scheduler: booking.CalendarLink{BaseURL: "https://calendly.example.com/launchworthy"},
		Records:   env.records,
		Metrics:   env.metrics,
		Now:       func() time.Time { return testNow },
	}
	for _, fn := range configure {
		fn(&cfg, &deps)
	}

	srv, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	env.srv = srv
	env.handler = srv.Handler()
	return env
}

// do sends a request through the full middleware chain. A non-nil body is
// encoded as JSON unless it is already a string.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// session creates a visitor session and returns its token
func (e *testEnv) session(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[Session](t, rec).Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Config{Session: config.SessionConfig{Secret: testSecret, TTLHours: 1}}, Deps{})
	assert.Error(t, err)
}

func TestNew_RejectsWeakSessionSecret(t *testing.T) {
	_, err := New(Config{Session: config.SessionConfig{Secret: "short", TTLHours: 1}}, Deps{Backend: store.NewMemory()})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/health", "", nil)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("configured origins", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config, _ *Deps) {
			c.AllowedOrigins = []string{"https://launchworthy.example.com"}
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://launchworthy.example.com")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, "https://launchworthy.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodOptions, "/api/booking", "", nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, rec.Body.Len())
	})
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeBody[Session](t, rec)
	assert.NotEmpty(t, first.Token)
	assert.NotEmpty(t, first.VisitorID)

	// A valid token is renewed for the same visitor
	rec = env.do(t, http.MethodPost, "/api/session", first.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	renewed := decodeBody[Session](t, rec)
	assert.Equal(t, first.VisitorID, renewed.VisitorID)

	// A bad token starts a new visitor
	rec = env.do(t, http.MethodPost, "/api/session", "garbage", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEqual(t, first.VisitorID, decodeBody[Session](t, rec).VisitorID)
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[struct {
		Services    []catalogEntry    `json:"services"`
		CreditPacks []creditPackEntry `json:"credit_packs"`
	}](t, rec)
	require.Len(t, body.Services, 4)
	assert.Equal(t, "consult", string(body.Services[0].ID))
	assert.Equal(t, "$197", body.Services[0].DisplayPrice)
	assert.Equal(t, "$2,997", body.Services[3].DisplayPrice)
	require.Len(t, body.CreditPacks, 3)
	assert.Equal(t, types.CreditPackSingle, body.CreditPacks[0].ID)
	assert.Equal(t, "$9", body.CreditPacks[0].DisplayPrice)
}

func TestVisitorRoutes_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/booking"},
		{http.MethodPatch, "/api/booking/contact"},
		{http.MethodGet, "/api/optimizer"},
		{http.MethodPost, "/api/optimizer/submit"},
		{http.MethodGet, "/api/usage"},
		{http.MethodPost, "/api/usage/checkout"},
		{http.MethodPost, "/api/usage/credits"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := env.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.do(t, rt.method, rt.path, "not-a-token", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestVisitorState_IsolatedPerSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.session(t)
	bob := env.session(t)

	rec := env.do(t, http.MethodPatch, "/api/booking/contact", alice, map[string]string{"name": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/booking", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[bookingView](t, rec).ContactInfo.Name)

	rec = env.do(t, http.MethodGet, "/api/booking", alice, nil)
	assert.Equal(t, "Alice", decodeBody[bookingView](t, rec).ContactInfo.Name)
}

func TestDecodeJSON_RejectsBadBodies(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"name":`},
		{name: "unknown field", body: `{"nickname":"Al"}`},
		{name: "wrong type", body: `{"name":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, "/api/booking/contact", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody[errorBody](t, rec)
			assert.Contains(t, body.Fields, "body")
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", "", nil)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "launchworthy_http_requests_total")
	assert.Contains(t, body, `route="GET /health"`)
}

func TestRateLimit_Returns429(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Deps) {
		c.RateLimit = ratelimit.NewConfig(60, 2)
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/catalog", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := env.do(t, http.MethodGet, "/api/catalog", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody[map[string]any](t, rec)["error"])

	// Health checks are never limited
	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	metricsBody := env.do(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, "launchworthy_http_rate_limited_total 1")
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	env := newTestEnv(t)

	handler := env.srv.withLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ok"))
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()

	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)
	require.NoError(t, sse.WriteEvent(eventProgress, progressEvent{JobID: "job-1", Attempt: 1, Processed: 1, Total: 3}))
	sse.WriteError(&ErrNotConfigured{Feature: "jobs"})

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: progress\ndata: {\"job_id\":\"job-1\",\"attempt\":1,\"processed\":1,\"total\":3}\n\n")
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, `"status":503`)
}
