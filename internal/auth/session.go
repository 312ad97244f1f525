package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phorium/phorium/internal/model"
)

const sessionIssuer = "phorium"

// ErrInvalidSession is returned for missing, expired or tampered gate tokens.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionSigner issues and parses HS256 gate tokens.
type SessionSigner struct {
	secret []byte
	now    func() time.Time
}

// NewSessionSigner creates a signer keyed with secret.
func NewSessionSigner(secret string) (*SessionSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	return &SessionSigner{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for role valid for ttl.
func (s *SessionSigner) Issue(subject, role string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)

	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Parse validates token and returns its session.
func (s *SessionSigner) Parse(token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	switch claims.Role {
	case model.RoleVisitor, model.RoleAdmin:
	default:
		return nil, ErrInvalidSession
	}

	return &model.Session{Subject: claims.Subject, Role: claims.Role}, nil
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "gate_session"

// ContextWithSession adds the gate session to the context.
func ContextWithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the gate session, or nil.
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionContextKey).(*model.Session)
	return s
}
