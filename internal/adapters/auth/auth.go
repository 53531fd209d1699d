// Package auth issues and verifies bearer session tokens and carries the
// verified session through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okian/huddle/internal/domain/digest"
	"github.com/okian/huddle/internal/domain/model"
)

// Errors returned by the verifier. All of them wrap digest.ErrAuth.
var (
	ErrNoSession    = fmt.Errorf("%w: no session", digest.ErrAuth)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", digest.ErrAuth)
	ErrExpiredToken = fmt.Errorf("%w: token expired", digest.ErrAuth)
)

// Session is the identity established by a verified token.
type Session struct {
	UserID    string
	Role      model.Role
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier signs and checks HS256 session tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithNow overrides the verifier clock.
func WithNow(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a verifier for tokens signed with secret by issuer.
func NewVerifier(secret, issuer string, opts ...VerifierOption) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("auth issuer is required")
	}
	v := &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID string, role model.Role, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	now := v.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the session it carries.
func (v *Verifier) Verify(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoSession
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Session{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Session{}, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}

	return Session{
		UserID:    parsed.Subject,
		Role:      model.ParseRole(parsed.Role),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// ContextProvider answers the digest builder's identity question from the
// request context.
type ContextProvider struct{}

// CurrentUser returns the authenticated user id for ctx.
func (ContextProvider) CurrentUser(ctx context.Context) (string, error) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == "" {
		return "", ErrNoSession
	}
	return s.UserID, nil
}
