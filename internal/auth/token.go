package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/homescout/listing-api/internal/config"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// TokenService issues and validates self-contained HMAC-signed bearer
// tokens. Validation is pure computation and safe to run concurrently.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService from the signing config.
// Empty secret or an unknown/non-HMAC algorithm is a construction-time
// error; callers treat it as fatal at startup.
func NewTokenService(cfg *config.JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token service: signing secret is empty")
	}
	if cfg.Algorithm == "" {
		return nil, fmt.Errorf("token service: signing algorithm is empty")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("token service: unknown signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token service: algorithm %q is not an HMAC method", cfg.Algorithm)
	}

	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a signed token for the subject, expiring at now + ttl.
// A zero ttl falls back to the configured default.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies signature and expiry and returns the embedded subject.
// Malformed, tampered, or expired tokens all fail with UNAUTHENTICATED.
func (s *TokenService) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperrors.NewAppError(apperrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	if claims.Subject == "" {
		return "", apperrors.NewAppError(apperrors.CodeUnauthenticated, "token has no subject", nil)
	}
	return claims.Subject, nil
}
