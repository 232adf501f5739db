package server

import (
	"context"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/parsing"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/middleware"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// validate checks request bodies; field names in errors use the JSON names
var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs the validator on req
func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return extractValidationErrors(err)
	}
	return nil
}

// handleCreateSession issues a visitor token and starts a visit. A request
// that already carries a valid token gets a fresh token for the same
// visitor; booking progress still on the contact step is dropped.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	visitorID := ""
	if token, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		if claims, err := s.sessions.ValidateToken(token); err == nil {
			visitorID = claims.GetVisitorID()
		}
	}

	session, err := s.sessions.Issue(visitorID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := booking.BeginVisit(r.Context(), s.deps.Backend, session.VisitorID); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	status := http.StatusCreated
	if visitorID != "" {
		status = http.StatusOK
	}
	s.jsonResponse(w, status, session)
}

// catalogEntry is a service with its formatted price
type catalogEntry struct {
	types.Service
	DisplayPrice string `json:"display_price"`
}

func newCatalogEntry(svc types.Service) catalogEntry {
	return catalogEntry{Service: svc, DisplayPrice: svc.DisplayPrice()}
}

// creditPackEntry is a credit pack with its formatted price
type creditPackEntry struct {
	types.CreditPack
	DisplayPrice string `json:"display_price"`
}

// handleCatalog lists the bookable services in display order and the
// optimizer credit packs
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	services := types.Services()
	entries := make([]catalogEntry, 0, len(services))
	for _, svc := range services {
		entries = append(entries, newCatalogEntry(svc))
	}
	packs := types.CreditPacks()
	packEntries := make([]creditPackEntry, 0, len(packs))
	for _, p := range packs {
		packEntries = append(packEntries, creditPackEntry{CreditPack: p, DisplayPrice: p.DisplayPrice()})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"services": entries, "credit_packs": packEntries})
}

// ParseJDRequest is the body of POST /api/parse-jd. Exactly one of Text
// and URL is used; Text wins when both are set.
type ParseJDRequest struct {
	Text string `json:"text" validate:"required_without=URL,max=100000"`
	URL  string `json:"url" validate:"omitempty,url"`
}

// handleParseJD parses a job description without touching any visitor state
func (s *Server) handleParseJD(w http.ResponseWriter, r *http.Request) {
	var req ParseJDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := validateRequest(req); err != nil {
		s.fail(w, r, err, nil)
		return
	}

	text := req.Text
	if text == "" {
		fetched, err := s.fetchJD(r.Context(), req.URL)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		text = fetched
	}

	s.jsonResponse(w, http.StatusOK, parsing.Parse(text))
}

// fetchJD loads posting text through the configured fetcher
func (s *Server) fetchJD(ctx context.Context, url string) (string, error) {
	if s.deps.Fetcher == nil {
		return "", &ErrNotConfigured{Feature: "job posting fetch"}
	}
	text, err := s.deps.Fetcher.FetchText(ctx, url)
	if err != nil {
		log.Printf("[server] fetch %s failed: %v", url, err)
		return "", &optimizer.TransportError{Op: "fetch job description", Cause: err}
	}
	return text, nil
}
