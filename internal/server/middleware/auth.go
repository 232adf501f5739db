// Package middleware provides HTTP middleware for visitor sessions and admin access.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// visitorIDKey is the context key for the authenticated visitor ID.
const visitorIDKey ContextKey = "visitorID"

// ErrNoVisitor is returned when a request carries no authenticated visitor
var ErrNoVisitor = errors.New("visitor ID not found in request context")

// TokenValidator validates visitor session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (VisitorIDGetter, error)
}

// VisitorIDGetter extracts the visitor ID from validated token claims.
type VisitorIDGetter interface {
	GetVisitorID() string
}

// Session requires a valid "Authorization: Bearer <token>" header and puts
// the visitor ID into the request context.
func Session(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}
			visitorID := claims.GetVisitorID()
			if visitorID == "" {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), visitorID)))
		})
	}
}

// BearerToken parses a Bearer authorization header. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}

// WithVisitorID returns ctx carrying visitorID
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDKey, visitorID)
}

// GetVisitorID extracts the authenticated visitor ID from the request context.
func GetVisitorID(r *http.Request) (string, error) {
	visitorID, ok := r.Context().Value(visitorIDKey).(string)
	if !ok || visitorID == "" {
		return "", ErrNoVisitor
	}
	return visitorID, nil
}

// BasicAuth protects a handler with HTTP basic auth checked by verify.
// A nil verify rejects every request.
func BasicAuth(realm string, verify func(user, password string) bool) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok || verify == nil || !verify(user, password) {
				w.Header().Set("WWW-Authenticate", challenge)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
