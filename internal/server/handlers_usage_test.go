package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/usage"
)

// visitorOf returns the visitor a session token was issued to
func (e *testEnv) visitorOf(t *testing.T, token string) string {
	t.Helper()
	claims, err := e.srv.sessions.ValidateToken(token)
	require.NoError(t, err)
	return claims.GetVisitorID()
}

// buyCredits opens and pays a checkout for pack and returns its session id
func buyCredits(t *testing.T, env *testEnv, token string, pack types.CreditPackID) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/usage/checkout", token, map[string]any{"pack": pack})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decodeBody[booking.CheckoutSession](t, rec)
	env.checkout.markPaid(session.ID)
	return session.ID
}

func TestGetUsage_FreshVisitor(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	rec := env.do(t, http.MethodGet, "/api/usage", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeBody[usageView](t, rec)
	assert.True(t, view.Allowed)
	assert.Equal(t, 1, view.FreeRemaining)
	assert.Zero(t, view.PaidCredits)
	assert.False(t, view.Usage.FreeUsed)

	metricsBody := env.do(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, `launchworthy_usage_checks_total{allowed="true"} 1`)
}

func TestCreditCheckout(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/usage/checkout", token, map[string]any{"pack": "credits-5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decodeBody[booking.CheckoutSession](t, rec)
	assert.Equal(t, "cs_test_credits-5", session.ID)
	assert.Equal(t, "https://checkout.example.com/cs_test_credits-5", session.URL)

	details, err := env.checkout.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PurposeCredits, details.Purpose)
	assert.Equal(t, env.visitorOf(t, token), details.VisitorID)
	assert.Equal(t, 5, details.Credits)
	assert.Equal(t, int64(3900), details.AmountCents)

	tests := []struct {
		name string
		body any
	}{
		{name: "unknown pack", body: map[string]any{"pack": "credits-1000"}},
		{name: "missing pack", body: map[string]any{}},
		{name: "client chosen count", body: map[string]any{"pack": "credits-1", "count": 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/usage/checkout", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAddCredits_GrantsPurchasedPack(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/usage/credits", token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Fields, "payment_session_id")

	rec = env.do(t, http.MethodPost, "/api/usage/checkout", token, map[string]any{"pack": "credits-5"})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := decodeBody[booking.CheckoutSession](t, rec).ID

	// Returning before the provider reports payment
	body := map[string]string{"payment_session_id": sessionID}
	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, body)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	env.checkout.markPaid(sessionID)
	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decodeBody[usageView](t, rec).PaidCredits)

	// A paid session is redeemed once, by anyone
	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := env.session(t)
	rec = env.do(t, http.MethodPost, "/api/usage/credits", other, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/usage", token, nil)
	assert.Equal(t, 5, decodeBody[usageView](t, rec).PaidCredits)
}

func TestAddCredits_CountComesFromPurchase(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)
	sessionID := buyCredits(t, env, token, types.CreditPackSingle)

	rec := env.do(t, http.MethodPost, "/api/usage/credits", token, map[string]any{"count": 100, "payment_session_id": sessionID})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, map[string]any{"payment_session_id": sessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[usageView](t, rec).PaidCredits)
}

func TestAddCredits_RejectsBookingPayment(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)
	fillStep1(t, env, token, types.ServiceConsult)

	rec := env.do(t, http.MethodPost, "/api/booking/checkout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env.checkout.markPaid("cs_test_consult")

	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, map[string]string{"payment_session_id": "cs_test_consult"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, decodeBody[errorBody](t, rec).Error, "purpose")

	rec = env.do(t, http.MethodGet, "/api/usage", token, nil)
	assert.Zero(t, decodeBody[usageView](t, rec).PaidCredits)

	// The booking payment is still good for its booking
	rec = env.do(t, http.MethodPost, "/api/booking/payment-return?session_id=cs_test_consult", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAddCredits_RejectsOtherVisitorsPurchase(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.session(t)
	sessionID := buyCredits(t, env, buyer, types.CreditPackTen)

	thief := env.session(t)
	rec := env.do(t, http.MethodPost, "/api/usage/credits", thief, map[string]string{"payment_session_id": sessionID})
	require.Equal(t, http.StatusConflict, rec.Code)

	// A rejected attempt does not burn the session
	rec = env.do(t, http.MethodPost, "/api/usage/credits", buyer, map[string]string{"payment_session_id": sessionID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, decodeBody[usageView](t, rec).PaidCredits)
}

func TestCreditRoutes_WithoutCheckout(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, d *Deps) {
		d.Checkout = nil
	})
	token := env.session(t)

	rec := env.do(t, http.MethodPost, "/api/usage/checkout", token, map[string]any{"pack": "credits-1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/usage/credits", token, map[string]string{"payment_session_id": "cs_1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResetUsage_AdminOnly(t *testing.T) {
	env := newAdminEnv(t)
	token := env.session(t)
	visitorID := env.visitorOf(t, token)

	tracker := usage.NewTracker(usage.NewStore(env.backend, visitorID))
	_, err := tracker.RecordUse(context.Background())
	require.NoError(t, err)

	// Visitors cannot hand themselves another free run
	rec := env.do(t, http.MethodDelete, "/api/usage", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, decodeBody[usageView](t, env.do(t, http.MethodGet, "/api/usage", token, nil)).Allowed)

	rec = env.adminRequest(t, http.MethodDelete, "/admin/usage/"+visitorID, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.adminRequest(t, http.MethodDelete, "/admin/usage/"+visitorID, "admin", adminPassword)
	require.Equal(t, http.StatusNoContent, rec.Code)

	view := decodeBody[usageView](t, env.do(t, http.MethodGet, "/api/usage", token, nil))
	assert.True(t, view.Allowed)
	assert.Zero(t, view.Usage.TotalUses)
}
