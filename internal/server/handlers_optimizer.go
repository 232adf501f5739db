package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/usage"
)

// optimizerView is the optimizer state plus whether the current step may be left
type optimizerView struct {
	types.OptimizerState
	CanProceed bool `json:"can_proceed"`
}

func newOptimizerView(f *optimizer.Flow) optimizerView {
	state := f.State()
	return optimizerView{OptimizerState: state, CanProceed: f.CanProceedFromStep(state.CurrentStep)}
}

// SetBulletsRequest is the body of PUT /api/optimizer/bullets. Text, when
// present, is pasted text split into bullets and replaces Bullets.
type SetBulletsRequest struct {
	Bullets []string `json:"bullets" validate:"max=30,dive,max=1000"`
	Text    *string  `json:"text" validate:"omitempty,max=30000"`
}

// BulletRequest is the body of the single-bullet routes
type BulletRequest struct {
	Text string `json:"text" validate:"max=1000"`
}

// SetJDRequest is the body of PUT /api/optimizer/jd. A URL is fetched and
// parsed; otherwise Text is stored and parsed.
type SetJDRequest struct {
	Text string `json:"text" validate:"max=100000"`
	URL  string `json:"url" validate:"omitempty,url"`
}

// UpdateParsedJDRequest is the body of PATCH /api/optimizer/jd/parsed
type UpdateParsedJDRequest struct {
	types.ParsedJDPatch
	RemoveSkill string `json:"remove_skill,omitempty"`
}

func (s *Server) loadOptimizer(ctx context.Context, visitorID string, poll optimizer.PollConfig) (*optimizer.Flow, error) {
	return optimizer.Load(ctx, visitorID, optimizer.NewStore(s.deps.Backend, visitorID), optimizer.Deps{
		Jobs:    s.deps.Jobs,
		Fetcher: s.deps.Fetcher,
		Usage:   usage.NewTracker(usage.NewStore(s.deps.Backend, visitorID), usage.WithClock(s.deps.Now)),
		Poll:    poll,
		Now:     s.deps.Now,
	})
}

// withOptimizer loads the visitor's optimizer flow, runs op and answers
// with the resulting state
func (s *Server) withOptimizer(w http.ResponseWriter, r *http.Request, visitorID string, op func(ctx context.Context, f *optimizer.Flow) error) {
	ctx := r.Context()
	f, err := s.loadOptimizer(ctx, visitorID, s.cfg.Poll)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := op(ctx, f); err != nil {
		s.fail(w, r, err, newOptimizerView(f))
		return
	}
	s.jsonResponse(w, http.StatusOK, newOptimizerView(f))
}

// pathInt parses an integer path value
func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, &ErrValidation{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

func (s *Server) handleGetOptimizer(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withOptimizer(w, r, visitorID, func(context.Context, *optimizer.Flow) error { return nil })
}

func (s *Server) handleSetBullets(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req SetBulletsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		if req.Text != nil {
			return f.SetBulletsFromText(ctx, *req.Text)
		}
		return f.SetBullets(ctx, req.Bullets)
	})
}

func (s *Server) handleAddBullet(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req BulletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.AddBullet(ctx, req.Text)
	})
}

func (s *Server) handleUpdateBullet(w http.ResponseWriter, r *http.Request, visitorID string) {
	index, err := pathInt(r, "index")
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	var req BulletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.UpdateBullet(ctx, index, req.Text)
	})
}

func (s *Server) handleRemoveBullet(w http.ResponseWriter, r *http.Request, visitorID string) {
	index, err := pathInt(r, "index")
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.RemoveBullet(ctx, index)
	})
}

func (s *Server) handleSetJD(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req SetJDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if req.URL != "" && s.deps.Fetcher == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "job posting fetch"}, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		if req.URL != "" {
			return f.FetchJD(ctx, req.URL)
		}
		if err := f.SetJDText(ctx, req.Text); err != nil {
			return err
		}
		_, err := f.ParseJD(ctx)
		return err
	})
}

func (s *Server) handleUpdateParsedJD(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req UpdateParsedJDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		if err := f.UpdateParsedJD(ctx, req.ParsedJDPatch); err != nil {
			return err
		}
		if req.RemoveSkill != "" {
			return f.RemoveSkill(ctx, req.RemoveSkill)
		}
		return nil
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, visitorID string) {
	var patch types.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.UpdateSettings(ctx, patch)
	})
}

func (s *Server) handleOptimizerNext(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.Next(ctx)
	})
}

func (s *Server) handleOptimizerPrev(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.Prev(ctx)
	})
}

func (s *Server) handleOptimizerGoTo(w http.ResponseWriter, r *http.Request, visitorID string) {
	step, err := pathInt(r, "step")
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.GoToStep(ctx, step)
	})
}

// handleOptimizerSubmit submits the bullets and waits for the job. With
// "Accept: text/event-stream" the wait is streamed as progress events
// followed by a complete or error event.
func (s *Server) handleOptimizerSubmit(w http.ResponseWriter, r *http.Request, visitorID string) {
	if s.deps.Jobs == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "optimization job service"}, nil)
		return
	}
	if wantsEventStream(r) {
		s.streamSubmit(w, r, visitorID)
		return
	}

	ctx := r.Context()
	f, err := s.loadOptimizer(ctx, visitorID, s.cfg.Poll)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	err = f.Submit(ctx)
	s.deps.Metrics.OptimizerRun(submitOutcome(err))
	if err != nil {
		s.fail(w, r, err, newOptimizerView(f))
		return
	}
	s.jsonResponse(w, http.StatusOK, newOptimizerView(f))
}

func (s *Server) streamSubmit(w http.ResponseWriter, r *http.Request, visitorID string) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	ctx := r.Context()
	var f *optimizer.Flow
	poll := s.cfg.Poll
	poll.OnProgress = sse.progressWriter(func() string {
		if id := f.State().JobID; id != nil {
			return *id
		}
		return ""
	})

	f, err = s.loadOptimizer(ctx, visitorID, poll)
	if err != nil {
		sse.WriteError(err)
		return
	}
	err = f.Submit(ctx)
	s.deps.Metrics.OptimizerRun(submitOutcome(err))
	if err != nil {
		sse.WriteError(err)
		return
	}
	sse.WriteEvent(eventComplete, newOptimizerView(f)) //nolint:errcheck
}

// submitOutcome labels a submission for the optimizer_runs metric
func submitOutcome(err error) string {
	var (
		jobErr   *optimizer.JobError
		usageErr *optimizer.UsageError
		stepErr  *optimizer.StepError
	)
	switch {
	case err == nil:
		return "completed"
	case errors.As(err, &jobErr) && jobErr.Kind == optimizer.JobTimeout:
		return "timeout"
	case errors.As(err, &jobErr):
		return "failed"
	case errors.As(err, &usageErr), errors.As(err, &stepErr):
		return "rejected"
	default:
		return "error"
	}
}

func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withOptimizer(w, r, visitorID, func(ctx context.Context, f *optimizer.Flow) error {
		return f.StartOver(ctx)
	})
}
