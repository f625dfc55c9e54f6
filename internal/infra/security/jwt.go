package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its signature failed validation.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrExpiredSessionToken indicates the token's embedded expiry has passed.
	ErrExpiredSessionToken = errors.New("session token expired")
)

// SessionClaims carries the minimal claim set the portal needs per request.
type SessionClaims struct {
	UserID  string `json:"uid"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// SessionSigner mints and validates HS256 session tokens.
type SessionSigner struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewSessionSigner constructs a signer for the supplied key and TTL.
func NewSessionSigner(signingKey []byte, issuer string, ttl time.Duration) (*SessionSigner, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SessionSigner{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// WithClock allows tests to override the clock used for issuance.
func (s *SessionSigner) WithClock(now func() time.Time) *SessionSigner {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL returns the configured session lifetime.
func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// Sign issues a session token for the given user.
func (s *SessionSigner) Sign(userID string, isAdmin bool) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := s.now().UTC()
	claims := SessionClaims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Validate parses the token and returns its claims. Expired tokens are
// reported distinctly so the admin guard can answer 403 instead of 401.
func (s *SessionSigner) Validate(raw string) (*SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSessionToken
		}
		return nil, ErrInvalidSessionToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidSessionToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidSessionToken
	}

	return claims, nil
}
