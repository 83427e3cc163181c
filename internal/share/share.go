// Package share issues and validates time-boxed share links. A share token
// lets a credential holder hand a verifier scoped read access without
// exposing the access code.
package share

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"attest/internal/credential/models"
	dErrors "attest/pkg/domain-errors"
)

const (
	// DefaultTTL applies when the caller does not request a lifetime.
	DefaultTTL = 24 * time.Hour
	// MaxTTL is the hard upper bound on share link lifetimes.
	MaxTTL = 7 * 24 * time.Hour

	audience = "attest/share"
)

// Claims are the JWT claims carried by a share token. The credential ID rides
// in the standard subject claim.
type Claims struct {
	Fingerprint string `json:"fpr,omitempty"`
	jwt.RegisteredClaims
}

type Option func(*Service)

// Service signs and validates share tokens with a symmetric key.
type Service struct {
	signingKey []byte
	issuer     string
	maxTTL     time.Duration
	now        func() time.Time
}

func NewService(signingKey, issuer string, opts ...Option) *Service {
	svc := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		maxTTL:     MaxTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithMaxTTL lowers the upper bound on requested lifetimes.
func WithMaxTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 && ttl < MaxTTL {
			s.maxTTL = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Issue signs a share token for the credential. A non-positive ttl falls back
// to the default; anything above the configured maximum is clamped.
func (s *Service) Issue(id models.CredentialID, fingerprint string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if len(s.signingKey) == 0 {
		return "", time.Time{}, dErrors.New(dErrors.CodeInternal, "share signing key is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token id")
	}

	now := s.now()
	expiresAt = now.Add(ttl)
	claims := Claims{
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{audience},
			ID:        hex.EncodeToString(jti),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign share token")
	}
	return signed, expiresAt, nil
}

// Validate checks signature, algorithm, expiry, and audience, and returns the
// credential ID the token grants access to.
func (s *Service) Validate(token string) (models.CredentialID, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "share token is required")
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unexpected signing algorithm")
		}
		return s.signingKey, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "share link has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid share token")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid share token")
	}
	return models.ParseCredentialID(claims.Subject)
}
