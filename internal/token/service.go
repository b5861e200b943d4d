// Package token issues and validates the HMAC-signed access and refresh
// tokens. Tokens are not stored; validity is signature and expiry only.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
)

type Config struct {
	Issuer        string
	Algorithm     string
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Service manages token issuance and validation. It is safe for concurrent use.
type Service struct {
	issuer        string
	method        *jwt.SigningMethodHMAC
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token: unsupported algorithm %q, want HS256/HS384/HS512", alg)
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	s := &Service{
		issuer:        cfg.Issuer,
		method:        method,
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// stamp fills iss, iat and exp. ttl <= 0 selects def.
func (s *Service) stamp(rc *jwt.RegisteredClaims, ttl, def time.Duration) {
	if ttl <= 0 {
		ttl = def
	}
	now := s.now()
	rc.Issuer = s.issuer
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
}

// IssueAccessToken signs c with the access secret. Subject, Name and Role
// come from the caller; the rest is set here.
func (s *Service) IssueAccessToken(c AccessClaims, ttl time.Duration) (string, error) {
	s.stamp(&c.RegisteredClaims, ttl, s.accessTTL)
	signed, err := jwt.NewWithClaims(s.method, c).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs c with the refresh secret.
func (s *Service) IssueRefreshToken(c RefreshClaims, ttl time.Duration) (string, error) {
	s.stamp(&c.RegisteredClaims, ttl, s.refreshTTL)
	signed, err := jwt.NewWithClaims(s.method, c).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken returns the claims of a well-signed, unexpired access
// token. Any failure is apperr.ErrCredentialsInvalid.
func (s *Service) ValidateAccessToken(tok string) (*AccessClaims, error) {
	c := &AccessClaims{}
	if err := s.parse(tok, c, s.accessSecret); err != nil {
		return nil, apperr.ErrCredentialsInvalid
	}
	if c.Subject == "" || c.Name == "" || c.Role == "" {
		return nil, apperr.ErrCredentialsInvalid
	}
	return c, nil
}

// ValidateRefreshToken is ValidateAccessToken for refresh tokens; only the
// subject is required.
func (s *Service) ValidateRefreshToken(tok string) (*RefreshClaims, error) {
	c := &RefreshClaims{}
	if err := s.parse(tok, c, s.refreshSecret); err != nil {
		return nil, apperr.ErrCredentialsInvalid
	}
	if c.Subject == "" {
		return nil, apperr.ErrCredentialsInvalid
	}
	return c, nil
}

func (s *Service) parse(tok string, c jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(tok, c, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	return err
}
