package admin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/repo"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/authz"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
)

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// AdminService orchestrates login, refresh and admin lookups.
type AdminService struct {
	dir       repo.Directory
	verifier  *Verifier
	tokens    *token.Service
	gate      *authz.Gate
	cipher    *textcrypto.Cipher
	adminRole string
	logger    *zap.SugaredLogger
}

func NewAdminService(dir repo.Directory, verifier *Verifier, tokens *token.Service, gate *authz.Gate, cipher *textcrypto.Cipher, adminRole string, logger *zap.SugaredLogger) *AdminService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AdminService{
		dir:       dir,
		verifier:  verifier,
		tokens:    tokens,
		gate:      gate,
		cipher:    cipher,
		adminRole: adminRole,
		logger:    logger,
	}
}

// Login authenticates and mints both tokens. Every authentication failure is
// the same ErrCredentialsInvalid.
func (s *AdminService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	c, err := s.verifier.Authenticate(ctx, username, password)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, err
	}
	if c == nil {
		metrics.RecordAuthAttempt("login", false)
		return nil, apperr.ErrCredentialsInvalid
	}
	pair, err := s.GenerateTokens(c)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthAttempt("login", true)
	s.logger.Infow("admin logged in", "user", c.UUID)
	return pair, nil
}

// GenerateTokens mints an access and a refresh token for c.
func (s *AdminService) GenerateTokens(c *entity.Credential) (*TokenPair, error) {
	access, err := s.GenerateAccessToken(c)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(token.NewRefreshClaims(c.UUID), 0)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// GenerateAccessToken mints only the access token. The name claim is the
// stored encrypted email and the role claim the encrypted admin role.
func (s *AdminService) GenerateAccessToken(c *entity.Credential) (string, error) {
	claims := token.NewAccessClaims(c.UUID, c.EmailAES, s.cipher.Encrypt(s.adminRole))
	return s.tokens.IssueAccessToken(claims, 0)
}

// Refresh exchanges a refresh token for a new access token. The account is
// looked up again, so deleted or disabled admins cannot refresh.
func (s *AdminService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		metrics.RecordAuthAttempt("refresh", false)
		return nil, err
	}
	c, err := s.gate.RequireRefreshable(ctx, claims)
	if err != nil {
		metrics.RecordAuthAttempt("refresh", false)
		return nil, err
	}
	access, err := s.GenerateAccessToken(c)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthAttempt("refresh", true)
	return &TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Info returns the public view of an enabled admin.
func (s *AdminService) Info(ctx context.Context, id string) (*entity.View, error) {
	c, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("admin %s: %w", id, apperr.ErrNotFound)
	}
	email, err := s.cipher.Decrypt(c.EmailAES)
	if err != nil {
		// stored data is unreadable with the configured key
		return nil, fmt.Errorf("decrypt email of %s: %v", id, err)
	}
	return &entity.View{UUID: c.UUID, Email: email, CreatedAt: c.CreatedAt, Enabled: c.Enabled}, nil
}

// VerifyCode checks an opaque verification code.
func (s *AdminService) VerifyCode(code string) (map[string]any, error) {
	return s.verifier.VerifyCode(code)
}

// IssueCode mints a verification code carrying payload.
func (s *AdminService) IssueCode(payload map[string]any, ttl time.Duration) (string, error) {
	return s.verifier.IssueCode(payload, ttl)
}
