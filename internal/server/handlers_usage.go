package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/usage"
)

// CreditCheckoutRequest is the body of POST /api/usage/checkout
type CreditCheckoutRequest struct {
	Pack types.CreditPackID `json:"pack" validate:"required,max=64"`
}

// AddCreditsRequest is the body of POST /api/usage/credits. The credits
// granted are the ones the checkout session paid for.
type AddCreditsRequest struct {
	PaymentSessionID string `json:"payment_session_id" validate:"required,max=255"`
}

// usageView is the usage record with the decision it implies
type usageView struct {
	types.UsageDecision
	Usage types.UsageData `json:"usage"`
}

// creditClaim marks a payment session whose credits were granted
type creditClaim struct {
	VisitorID string             `json:"visitor_id"`
	Pack      types.CreditPackID `json:"pack"`
	Credits   int                `json:"credits"`
	ClaimedAt time.Time          `json:"claimed_at"`
}

func (s *Server) usageTracker(visitorID string) *usage.Tracker {
	return usage.NewTracker(usage.NewStore(s.deps.Backend, visitorID), usage.WithClock(s.deps.Now))
}

func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request, visitorID string) {
	data, err := s.usageTracker(visitorID).Data(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	decision := usage.Decide(data)
	s.deps.Metrics.UsageChecked(decision.Allowed)
	s.jsonResponse(w, http.StatusOK, usageView{UsageDecision: decision, Usage: data})
}

// handleCreditCheckout opens a hosted checkout for a credit pack
func (s *Server) handleCreditCheckout(w http.ResponseWriter, r *http.Request, visitorID string) {
	if s.deps.Checkout == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "checkout"}, nil)
		return
	}
	var req CreditCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	pack, ok := types.LookupCreditPack(req.Pack)
	if !ok {
		s.fail(w, r, &ErrValidation{Field: "pack", Message: "unknown credit pack"}, nil)
		return
	}

	session, err := s.deps.Checkout.CreateSession(r.Context(), booking.CheckoutRequest{
		VisitorID: visitorID,
		Purpose:   booking.PurposeCredits,
		Pack:      pack,
	})
	if err != nil {
		s.fail(w, r, &booking.CollaboratorError{Op: "create checkout session", Cause: err}, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, session)
}

func (s *Server) handleAddCredits(w http.ResponseWriter, r *http.Request, visitorID string) {
	if s.deps.Checkout == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "checkout"}, nil)
		return
	}
	var req AddCreditsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	data, err := s.redeemCredits(r.Context(), s.usageTracker(visitorID), visitorID, req.PaymentSessionID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, usageView{UsageDecision: usage.Decide(data), Usage: data})
}

// redeemCredits grants the credits a paid credit-pack session bought. The
// session must have been opened by this visitor for a catalog pack at its
// price. The claim is written before the credits and removed again if
// granting fails.
func (s *Server) redeemCredits(ctx context.Context, tracker *usage.Tracker, visitorID, sessionID string) (types.UsageData, error) {
	claims := store.NewJSON[creditClaim](s.deps.Backend, store.Key("credit-session", sessionID))
	if _, used, err := claims.Load(ctx); err != nil {
		return types.UsageData{}, err
	} else if used {
		return types.UsageData{}, &booking.SessionUsedError{SessionID: sessionID}
	}

	details, err := s.deps.Checkout.Session(ctx, sessionID)
	if err != nil {
		return types.UsageData{}, &booking.CollaboratorError{Op: "verify payment", Cause: err}
	}
	pack, _ := types.LookupCreditPack(details.Pack)
	if err := details.Verify(booking.ForCreditPack(visitorID, pack)); err != nil {
		log.Printf("[server] rejected credit session %s for %s: %v", sessionID, visitorID, err)
		return types.UsageData{}, err
	}
	if pack.Credits < 1 {
		return types.UsageData{}, &booking.PaymentMismatchError{SessionID: sessionID, Field: "credit pack", Want: "a catalog credit pack", Got: string(details.Pack)}
	}

	claim := creditClaim{VisitorID: visitorID, Pack: pack.ID, Credits: pack.Credits, ClaimedAt: s.deps.Now().UTC()}
	if err := claims.Save(ctx, claim); err != nil {
		return types.UsageData{}, err
	}
	data, err := tracker.AddCredits(ctx, pack.Credits)
	if err != nil {
		if cerr := claims.Clear(context.WithoutCancel(ctx)); cerr != nil {
			log.Printf("[server] failed to release payment session %s: %v", sessionID, cerr)
		}
		return types.UsageData{}, err
	}
	log.Printf("[server] granted %d credits to %s for session %s", pack.Credits, visitorID, sessionID)
	return data, nil
}
