package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
)

const testSecret = "test-secret-key-for-session-tokens"

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	s, err := NewSessionService(config.SessionConfig{Secret: testSecret, TTLHours: 24})
	require.NoError(t, err)
	return s
}

func TestNewSessionService_RejectsWeakConfig(t *testing.T) {
	_, err := NewSessionService(config.SessionConfig{Secret: "short", TTLHours: 24})
	assert.Error(t, err)

	_, err = NewSessionService(config.SessionConfig{Secret: testSecret, TTLHours: 0})
	assert.Error(t, err)
}

func TestSessionService_IssueAndValidate(t *testing.T) {
	s := newTestSessions(t)

	session, err := s.Issue("")
	require.NoError(t, err)
	assert.NotEmpty(t, session.VisitorID)
	assert.Len(t, strings.Split(session.Token, "."), 3)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)

	claims, err := s.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.VisitorID, claims.GetVisitorID())
	assert.Equal(t, sessionIssuer, claims.Issuer)
}

func TestSessionService_IssueKeepsVisitor(t *testing.T) {
	s := newTestSessions(t)

	first, err := s.Issue("")
	require.NoError(t, err)
	second, err := s.Issue(first.VisitorID)
	require.NoError(t, err)

	assert.Equal(t, first.VisitorID, second.VisitorID)
}

func TestSessionService_Expired(t *testing.T) {
	s := newTestSessions(t)
	issuedAt := time.Now()
	s.now = func() time.Time { return issuedAt }

	session, err := s.Issue("visitor")
	require.NoError(t, err)

	s.now = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	_, err = s.ValidateToken(session.Token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestSessionService_RejectsForeignTokens(t *testing.T) {
	s := newTestSessions(t)
	other, err := NewSessionService(config.SessionConfig{Secret: "another-secret-of-enough-length", TTLHours: 24})
	require.NoError(t, err)

	foreign, err := other.Issue("visitor")
	require.NoError(t, err)
	_, err = s.ValidateToken(foreign.Token)
	assert.Error(t, err)

	_, err = s.ValidateToken("")
	assert.Error(t, err)

	_, err = s.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestSessionService_RejectsWrongIssuerAndAlgorithm(t *testing.T) {
	s := newTestSessions(t)
	now := time.Now()

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "visitor",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	signed, err := wrongIssuer.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateToken(signed)
	assert.Error(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   "visitor",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	signed, err = hs512.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateToken(signed)
	assert.Error(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:  sessionIssuer,
		Subject: "visitor",
	}})
	signed, err = noExpiry.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateToken(signed)
	assert.Error(t, err)
}

func TestSessionService_AsTokenValidator(t *testing.T) {
	s := newTestSessions(t)
	session, err := s.Issue("visitor-9")
	require.NoError(t, err)

	getter, err := s.AsTokenValidator().ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "visitor-9", getter.GetVisitorID())

	_, err = s.AsTokenValidator().ValidateToken("bad")
	assert.Error(t, err)
}
