// Package server provides the HTTP JSON API for the booking and resume optimizer wizards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/metrics"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/middleware"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/ratelimit"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
)

const maxBodyBytes = 1 << 20

// Config holds server configuration
type Config struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	RateLimit       *ratelimit.Config
	Session         config.SessionConfig
	Admin           config.AdminConfig
	Poll            optimizer.PollConfig
	// JobsKey is the bearer key POST /api/optimize requires. Submissions
	// are refused while it is empty.
	JobsKey string
}

// Deps are the services behind the API. Backend is required; a nil
// collaborator makes the routes that need it answer 503 or fail the flow
// step that uses it.
type Deps struct {
	Backend   store.Backend
	Checkout  booking.CheckoutProvider
	Scheduler booking.Scheduler
	Relay     booking.FormRelay
	Records   booking.RecordLister
	Jobs      optimizer.JobClient
	Fetcher   optimizer.JDFetcher
	Metrics   *metrics.Collector
	Now       func() time.Time
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         Config
	deps        Deps
	sessions    *SessionService
	rateLimiter *ratelimit.Limiter
	locks       *visitorLocks
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Backend == nil {
		return nil, errors.New("server requires a state backend")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	sessions, err := NewSessionService(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		sessions:    sessions,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		locks:       newVisitorLocks(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      300 * time.Second, // optimizer submit polls for up to a minute
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())

	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)

	// Booking wizard
	mux.Handle("GET /api/booking", s.visitorRead(s.handleGetBooking))
	mux.Handle("PATCH /api/booking/contact", s.visitorWrite(s.handleUpdateContact))
	mux.Handle("PUT /api/booking/service", s.visitorWrite(s.handleSelectService))
	mux.Handle("POST /api/booking/validate", s.visitorWrite(s.handleValidateBooking))
	mux.Handle("POST /api/booking/next", s.visitorWrite(s.handleBookingNext))
	mux.Handle("POST /api/booking/prev", s.visitorWrite(s.handleBookingPrev))
	mux.Handle("POST /api/booking/checkout", s.visitorWrite(s.handleBeginCheckout))
	mux.Handle("POST /api/booking/payment-return", s.visitorWrite(s.handlePaymentReturn))
	mux.Handle("GET /api/booking/scheduling-link", s.visitorRead(s.handleSchedulingLink))
	mux.Handle("POST /api/booking/complete", s.visitorWrite(s.handleCompleteBooking))
	mux.Handle("DELETE /api/booking", s.visitorWrite(s.handleClearBooking))

	// Resume optimizer wizard
	mux.Handle("GET /api/optimizer", s.visitorRead(s.handleGetOptimizer))
	mux.Handle("PUT /api/optimizer/bullets", s.visitorWrite(s.handleSetBullets))
	mux.Handle("POST /api/optimizer/bullets", s.visitorWrite(s.handleAddBullet))
	mux.Handle("PATCH /api/optimizer/bullets/{index}", s.visitorWrite(s.handleUpdateBullet))
	mux.Handle("DELETE /api/optimizer/bullets/{index}", s.visitorWrite(s.handleRemoveBullet))
	mux.Handle("PUT /api/optimizer/jd", s.visitorWrite(s.handleSetJD))
	mux.Handle("PATCH /api/optimizer/jd/parsed", s.visitorWrite(s.handleUpdateParsedJD))
	mux.Handle("PATCH /api/optimizer/settings", s.visitorWrite(s.handleUpdateSettings))
	mux.Handle("POST /api/optimizer/next", s.visitorWrite(s.handleOptimizerNext))
	mux.Handle("POST /api/optimizer/prev", s.visitorWrite(s.handleOptimizerPrev))
	mux.Handle("POST /api/optimizer/goto/{step}", s.visitorWrite(s.handleOptimizerGoTo))
	mux.Handle("POST /api/optimizer/submit", s.visitorWrite(s.handleOptimizerSubmit))
	mux.Handle("POST /api/optimizer/start-over", s.visitorWrite(s.handleStartOver))

	// Usage and credits
	mux.Handle("GET /api/usage", s.visitorRead(s.handleGetUsage))
	mux.Handle("POST /api/usage/checkout", s.visitorWrite(s.handleCreditCheckout))
	mux.Handle("POST /api/usage/credits", s.visitorWrite(s.handleAddCredits))

	// Optimization jobs and stateless parsing
	mux.HandleFunc("POST /api/optimize", s.handleSubmitJob)
	mux.HandleFunc("GET /api/optimize/status/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/optimize/results/{id}", s.handleJobResults)
	mux.HandleFunc("GET /api/optimize/events/{id}", s.handleJobEvents)
	mux.HandleFunc("POST /api/parse-jd", s.handleParseJD)

	if s.cfg.Admin.Enabled() {
		admin := middleware.BasicAuth("launchworthy-admin", s.cfg.Admin.Verify)
		mux.Handle("GET /admin/bookings", admin(http.HandlerFunc(s.handleListBookings)))
		mux.Handle("DELETE /admin/usage/{visitor}", admin(http.HandlerFunc(s.handleResetUsage)))
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens for requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Close releases background resources without serving
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// visitorHandler handles a request on behalf of an authenticated visitor
type visitorHandler func(w http.ResponseWriter, r *http.Request, visitorID string)

// visitorRead requires a visitor session
func (s *Server) visitorRead(h visitorHandler) http.Handler {
	return middleware.Session(s.sessions.AsTokenValidator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID, err := middleware.GetVisitorID(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r, visitorID)
	}))
}

// visitorWrite requires a visitor session and holds the visitor's lock for
// the whole request
func (s *Server) visitorWrite(h visitorHandler) http.Handler {
	return s.visitorRead(func(w http.ResponseWriter, r *http.Request, visitorID string) {
		unlock := s.locks.lock(visitorID)
		defer unlock()
		h(w, r, visitorID)
	})
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.cfg.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging logs each request and records its metrics under the matched route pattern
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.deps.Metrics.ObserveRequest(r.Method, r.Pattern, status, elapsed)
		log.Printf("[%s] %s %d in %v", r.Method, r.URL.Path, status, elapsed)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.deps.Metrics.RateLimited()
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID uses the IP address from RemoteAddr
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	retryAfter := int(info.RetryAfter.Seconds() + 0.999)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Reset=%s",
		info.Limit, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Rate limit exceeded. Please try again later.",
		"limit":       info.Limit,
		"retry_after": retryAfter,
		"reset_at":    info.ResetTime.Format(time.RFC3339),
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorBody is the JSON shape of a failed request. Wizard routes include
// the state so the client can re-render.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	State  any               `json:"state,omitempty"`
}

// fail writes err with the status from HTTPStatus. Unclassified errors are
// logged and their details hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, state any) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[server] %s %s failed: %v", r.Method, r.URL.Path, err)
		message = "internal server error"
	}
	s.jsonResponse(w, status, errorBody{Error: message, Fields: errorFields(err), State: state})
}

// decodeJSON decodes a JSON request body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Field: "body", Message: strings.TrimPrefix(err.Error(), "json: ")}
	}
	return nil
}
