package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
)

const maxListLimit = 500

// handleListBookings lists completed bookings for the admin. Filters come
// from the service, email and limit query parameters.
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		s.fail(w, r, &ErrNotConfigured{Feature: "booking records"}, nil)
		return
	}

	query := r.URL.Query()
	filters := db.BookingFilters{
		Service: query.Get("service"),
		Email:   query.Get("email"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			s.fail(w, r, &ErrValidation{Field: "limit", Message: "must be between 1 and 500"}, nil)
			return
		}
		filters.Limit = limit
	}

	bookings, err := s.deps.Records.ListBookings(r.Context(), filters)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// handleResetUsage clears a visitor's usage record, free run included
func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	visitorID := r.PathValue("visitor")
	unlock := s.locks.lock(visitorID)
	defer unlock()

	if err := s.usageTracker(visitorID).Reset(r.Context()); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	log.Printf("[admin] reset usage for visitor %s", visitorID)
	w.WriteHeader(http.StatusNoContent)
}
