package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/middleware"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// handleSubmitJob accepts an optimization job and answers 202 with its id.
// Only holders of the job service key may submit; visitors go through
// /api/optimizer/submit, which applies the usage limit.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "optimization job service"}, nil)
		return
	}
	if !s.jobKeyValid(r) {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req types.JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	resp, err := s.deps.Jobs.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, resp)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "optimization job service"}, nil)
		return
	}
	resp, err := s.deps.Jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "optimization job service"}, nil)
		return
	}
	resp, err := s.deps.Jobs.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleJobEvents streams a job's progress until it finishes. The complete
// event carries the job's candidates.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "optimization job service"}, nil)
		return
	}
	jobID := r.PathValue("id")

	// Unknown ids answer with a plain JSON error before the stream opens
	if _, err := s.deps.Jobs.Status(r.Context(), jobID); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	poll := s.cfg.Poll
	poll.OnProgress = sse.progressWriter(func() string { return jobID })
	completed, err := optimizer.PollJob(r.Context(), s.deps.Jobs, jobID, poll)
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteEvent(eventComplete, types.ResultsResponse{ //nolint:errcheck
		JobID:      jobID,
		Candidates: completed.Candidates,
	})
}

// jobKeyValid reports whether r carries the configured job service key
func (s *Server) jobKeyValid(r *http.Request) bool {
	if s.cfg.JobsKey == "" {
		return false
	}
	key, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	return ok && subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.JobsKey)) == 1
}
