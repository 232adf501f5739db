package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/middleware"
)

const sessionIssuer = "launchworthy"

// SessionClaims are the claims of a visitor token. The subject is the visitor ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// GetVisitorID implements middleware.VisitorIDGetter
func (c *SessionClaims) GetVisitorID() string {
	return c.Subject
}

// Session is an issued visitor token
type Session struct {
	Token     string    `json:"token"`
	VisitorID string    `json:"visitor_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionService issues and validates visitor tokens
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService creates a session service from validated config
func NewSessionService(cfg config.SessionConfig) (*SessionService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SessionService{
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(cfg.TTLHours) * time.Hour,
		now:    time.Now,
	}, nil
}

// Issue creates a token for visitorID, or for a new visitor when visitorID is empty
func (s *SessionService) Issue(visitorID string) (Session, error) {
	if visitorID == "" {
		visitorID = uuid.New().String()
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   visitorID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: token, VisitorID: visitorID, ExpiresAt: expiresAt.UTC().Truncate(time.Second)}, nil
}

// ValidateToken checks the signature, issuer and lifetime of a token
func (s *SessionService) ValidateToken(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// AsTokenValidator adapts the service to middleware.TokenValidator
func (s *SessionService) AsTokenValidator() middleware.TokenValidator {
	return sessionValidator{service: s}
}

type sessionValidator struct {
	service *SessionService
}

func (v sessionValidator) ValidateToken(tokenString string) (middleware.VisitorIDGetter, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
