package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenValidator accepts a fixed set of tokens
type testTokenValidator struct {
	validTokens map[string]string
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{validTokens: make(map[string]string)}
}

func (v *testTokenValidator) ValidateToken(tokenString string) (VisitorIDGetter, error) {
	visitorID, ok := v.validTokens[tokenString]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return testClaims(visitorID), nil
}

type testClaims string

func (c testClaims) GetVisitorID() string {
	return string(c)
}

func TestSession_ValidToken(t *testing.T) {
	validator := newTestTokenValidator()
	validator.validTokens["valid-token"] = "visitor-1"

	var seen string
	handler := Session(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetVisitorID(r)
		require.NoError(t, err)
		seen = id
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"Bearer valid-token", "bearer valid-token", "BeArEr  valid-token"} {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/api/booking", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, "visitor-1", seen, header)
	}
}

func TestSession_Rejects(t *testing.T) {
	validator := newTestTokenValidator()
	validator.validTokens["valid-token"] = "visitor-1"
	validator.validTokens["anonymous"] = ""

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"missing scheme", "valid-token"},
		{"only scheme", "Bearer"},
		{"wrong scheme", "Basic valid-token"},
		{"extra parts", "Bearer valid-token extra"},
		{"unknown token", "Bearer nope"},
		{"empty visitor", "Bearer anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := Session(validator)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/booking", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
		})
	}
}

func TestGetVisitorID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetVisitorID(req)
	assert.ErrorIs(t, err, ErrNoVisitor)

	req = req.WithContext(WithVisitorID(req.Context(), "v"))
	id, err := GetVisitorID(req)
	require.NoError(t, err)
	assert.Equal(t, "v", id)
}

func TestBasicAuth(t *testing.T) {
	verify := func(user, password string) bool {
		return user == "admin" && password == "secret"
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		user     string
		password string
		setAuth  bool
		verify   func(string, string) bool
		expected int
	}{
		{"valid", "admin", "secret", true, verify, http.StatusNoContent},
		{"wrong password", "admin", "nope", true, verify, http.StatusUnauthorized},
		{"no credentials", "", "", false, verify, http.StatusUnauthorized},
		{"nil verify", "admin", "secret", true, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.password)
			}
			w := httptest.NewRecorder()

			BasicAuth("admin", tt.verify)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), `realm="admin"`)
			}
		})
	}
}
