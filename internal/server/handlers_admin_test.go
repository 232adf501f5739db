package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const adminPassword = "correct horse battery"

func newAdminEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := config.HashPassword(adminPassword, 10)
	require.NoError(t, err)
	return newTestEnv(t, func(c *Config, _ *Deps) {
		c.Admin = config.AdminConfig{User: "admin", PasswordHash: hash}
	})
}

func (e *testEnv) admin(t *testing.T, path, user, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.adminRequest(t, http.MethodGet, path, user, password)
}

func (e *testEnv) adminRequest(t *testing.T, method, path, user, password string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func seedBookings(t *testing.T, env *testEnv) {
	t.Helper()
	recs := []types.BookingRecord{
		{ID: "b1", Service: types.ServiceConsult, PaymentSessionID: "cs_1", Contact: types.ContactInfo{Email: "ana@example.com"}, CompletedAt: testNow.Add(-2 * time.Hour)},
		{ID: "b2", Service: types.ServiceResume, PaymentSessionID: "cs_2", Contact: types.ContactInfo{Email: "ben@example.com"}, CompletedAt: testNow.Add(-time.Hour)},
		{ID: "b3", Service: types.ServiceConsult, PaymentSessionID: "cs_3", Contact: types.ContactInfo{Email: "cam@example.org"}, CompletedAt: testNow},
	}
	for _, rec := range recs {
		require.NoError(t, env.records.SaveBooking(context.Background(), rec))
	}
}

func TestListBookings(t *testing.T) {
	env := newAdminEnv(t)
	seedBookings(t, env)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all newest first", query: "", want: []string{"b3", "b2", "b1"}},
		{name: "by service", query: "?service=consult", want: []string{"b3", "b1"}},
		{name: "by email", query: "?email=EXAMPLE.COM", want: []string{"b2", "b1"}},
		{name: "limited", query: "?limit=1", want: []string{"b3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.admin(t, "/admin/bookings"+tt.query, "admin", adminPassword)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decodeBody[struct {
				Bookings []types.BookingRecord `json:"bookings"`
				Count    int                   `json:"count"`
			}](t, rec)
			ids := make([]string, 0, len(body.Bookings))
			for _, b := range body.Bookings {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), body.Count)
		})
	}
}

func TestListBookings_BadLimit(t *testing.T) {
	env := newAdminEnv(t)

	for _, limit := range []string{"0", "-1", "abc", "501"} {
		rec := env.admin(t, "/admin/bookings?limit="+limit, "admin", adminPassword)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestListBookings_RequiresAdmin(t *testing.T) {
	env := newAdminEnv(t)

	tests := []struct {
		name     string
		user     string
		password string
	}{
		{name: "no credentials"},
		{name: "wrong password", user: "admin", password: "nope"},
		{name: "wrong user", user: "root", password: adminPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.admin(t, "/admin/bookings", tt.user, tt.password)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="launchworthy-admin"`)
		})
	}
}

func TestListBookings_DisabledWithoutCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, "/admin/bookings", "admin", adminPassword)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBookings_NoRecords(t *testing.T) {
	hash, err := config.HashPassword(adminPassword, 10)
	require.NoError(t, err)
	env := newTestEnv(t, func(c *Config, d *Deps) {
		c.Admin = config.AdminConfig{User: "admin", PasswordHash: hash}
		d.Records = nil
	})

	rec := env.admin(t, "/admin/bookings", "admin", adminPassword)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResetUsage_DisabledWithoutCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.adminRequest(t, http.MethodDelete, "/admin/usage/someone", "admin", adminPassword)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
