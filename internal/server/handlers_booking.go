package server

import (
	"context"
	"net/http"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// bookingView is the booking state plus what the client derives from it
type bookingView struct {
	types.BookingState
	Step1Valid bool          `json:"step1_valid"`
	Service    *catalogEntry `json:"service,omitempty"`
}

func newBookingView(f *booking.Flow) bookingView {
	state := f.State()
	view := bookingView{BookingState: state, Step1Valid: f.CheckStep1Valid()}
	if state.SelectedService != nil {
		if svc, ok := types.LookupService(*state.SelectedService); ok {
			entry := newCatalogEntry(svc)
			view.Service = &entry
		}
	}
	return view
}

// SelectServiceRequest is the body of PUT /api/booking/service. A null or
// repeated service clears the selection.
type SelectServiceRequest struct {
	Service *types.ServiceID `json:"service"`
}

// PaymentReturnRequest is the body of POST /api/booking/payment-return.
// The session id may also come from the session_id query parameter.
type PaymentReturnRequest struct {
	SessionID string `json:"session_id" validate:"max=255"`
}

func (s *Server) loadBooking(ctx context.Context, visitorID string) (*booking.Flow, error) {
	return booking.Load(ctx, visitorID, booking.NewVisitStore(s.deps.Backend, visitorID), booking.Deps{
		Checkout:  s.deps.Checkout,
		Scheduler: s.deps.Scheduler,
		Relay:     s.deps.Relay,
		Records:   s.deps.Records,
		Now:       s.deps.Now,
	})
}

// withBooking loads the visitor's booking flow, runs op and answers with
// the resulting state
func (s *Server) withBooking(w http.ResponseWriter, r *http.Request, visitorID string, op func(ctx context.Context, f *booking.Flow) error) {
	ctx := r.Context()
	f, err := s.loadBooking(ctx, visitorID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := op(ctx, f); err != nil {
		s.fail(w, r, err, newBookingView(f))
		return
	}
	s.jsonResponse(w, http.StatusOK, newBookingView(f))
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(context.Context, *booking.Flow) error { return nil })
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request, visitorID string) {
	var patch types.ContactPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.UpdateContactInfo(ctx, patch)
	})
}

func (s *Server) handleSelectService(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req SelectServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if req.Service != nil && !req.Service.Valid() {
		s.fail(w, r, &ErrValidation{Field: "service", Message: "unknown service " + string(*req.Service)}, nil)
		return
	}
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.SetSelectedService(ctx, req.Service)
	})
}

// handleValidateBooking writes the step 1 errors into state. An invalid
// step is still a successful request; the errors are in the state.
func (s *Server) handleValidateBooking(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		_, err := f.ValidateStep1(ctx)
		return err
	})
}

func (s *Server) handleBookingNext(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.Next(ctx)
	})
}

func (s *Server) handleBookingPrev(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.Prev(ctx)
	})
}

// handleBeginCheckout opens the hosted checkout. The response carries the
// state, whose checkout_url the client redirects to.
func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		_, err := f.BeginCheckout(ctx)
		return err
	})
}

func (s *Server) handlePaymentReturn(w http.ResponseWriter, r *http.Request, visitorID string) {
	var req PaymentReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.URL.Query().Get("session_id")
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.ConfirmPayment(ctx, req.SessionID)
	})
}

func (s *Server) handleSchedulingLink(w http.ResponseWriter, r *http.Request, visitorID string) {
	f, err := s.loadBooking(r.Context(), visitorID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	link, err := f.SchedulingLink()
	if err != nil {
		s.fail(w, r, err, newBookingView(f))
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"url": link})
}

// handleCompleteBooking stores the completion record. The saved wizard
// state is cleared on success, so the response carries the record.
func (s *Server) handleCompleteBooking(w http.ResponseWriter, r *http.Request, visitorID string) {
	var details types.CompletionDetails
	if err := decodeJSON(w, r, &details); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	ctx := r.Context()
	f, err := s.loadBooking(ctx, visitorID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	rec, err := f.Complete(ctx, details)
	if err != nil {
		s.fail(w, r, err, newBookingView(f))
		return
	}
	s.deps.Metrics.BookingCompleted(rec.Service)
	s.jsonResponse(w, http.StatusCreated, map[string]any{"booking": rec})
}

func (s *Server) handleClearBooking(w http.ResponseWriter, r *http.Request, visitorID string) {
	s.withBooking(w, r, visitorID, func(ctx context.Context, f *booking.Flow) error {
		return f.ClearSavedState(ctx)
	})
}
