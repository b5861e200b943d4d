package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/repo"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
)

// Verifier checks passwords against the directory and decodes the opaque
// verification codes.
//
// An account with MaxFailed or more failed attempts is locked until LockFor
// has passed since the last attempt.
type Verifier struct {
	dir     repo.Directory
	hasher  PasswordHasher
	cipher  *textcrypto.Cipher
	codeTTL time.Duration
	logger  *zap.SugaredLogger
	now     func() time.Time

	MaxFailed int
	LockFor   time.Duration

	// compared against when the user is unknown
	fallbackHash string
}

func NewVerifier(dir repo.Directory, hasher PasswordHasher, cipher *textcrypto.Cipher, codeTTL time.Duration, logger *zap.SugaredLogger) (*Verifier, error) {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if codeTTL <= 0 {
		codeTTL = 30 * time.Minute
	}
	fallback, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare fallback hash: %w", err)
	}
	return &Verifier{
		dir:          dir,
		hasher:       hasher,
		cipher:       cipher,
		codeTTL:      codeTTL,
		logger:       logger,
		now:          time.Now,
		MaxFailed:    6,
		LockFor:      15 * time.Minute,
		fallbackHash: fallback,
	}, nil
}

// Authenticate returns the credential for username/password, or (nil, nil)
// when the user is unknown, disabled, locked or the password does not match.
// Only storage failures are errors.
func (v *Verifier) Authenticate(ctx context.Context, username, password string) (*entity.Credential, error) {
	c, err := v.dir.FindByUsernameHash(ctx, textcrypto.Hash(username))
	if err != nil {
		return nil, err
	}
	if c == nil {
		// burn a comparison so unknown users cost the same as wrong passwords
		v.hasher.Verify(v.fallbackHash, password)
		return nil, nil
	}
	if v.locked(c) {
		v.hasher.Verify(c.PasswordHash, password)
		v.logger.Debugw("login for locked admin", "user", c.UUID, "attempts", c.Attempts)
		return nil, nil
	}
	if !v.hasher.Verify(c.PasswordHash, password) {
		if err := v.dir.RecordFailedAttempt(ctx, c.UUID); err != nil {
			v.logger.Warnw("record failed attempt", "user", c.UUID, "err", err)
		}
		return nil, nil
	}
	if !c.Enabled {
		v.logger.Debugw("login for disabled admin", "user", c.UUID)
		return nil, nil
	}
	if err := v.dir.ResetAttempts(ctx, c.UUID); err != nil {
		v.logger.Warnw("reset attempts", "user", c.UUID, "err", err)
	}
	return c, nil
}

func (v *Verifier) locked(c *entity.Credential) bool {
	if v.MaxFailed <= 0 || c.Attempts < v.MaxFailed || c.LastAttempt == nil {
		return false
	}
	return v.now().Before(c.LastAttempt.Add(v.LockFor))
}

// VerifyCode decrypts an opaque code and returns its payload. The code must
// carry a numeric exp (Unix seconds) that is not in the past.
func (v *Verifier) VerifyCode(code string) (map[string]any, error) {
	plain, err := v.cipher.Decrypt(code)
	if err != nil {
		return nil, apperr.ErrCodeInvalid
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(plain), &payload); err != nil || payload == nil {
		return nil, apperr.ErrCodeInvalid
	}
	exp, ok := payload["exp"].(float64)
	if !ok {
		return nil, apperr.ErrCodeInvalid
	}
	now := float64(v.now().UnixNano()) / float64(time.Second)
	if exp < now {
		return nil, apperr.ErrCodeExpired
	}
	return payload, nil
}

// IssueCode encrypts payload with exp = now + ttl. ttl <= 0 uses the
// configured verification TTL.
func (v *Verifier) IssueCode(payload map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = v.codeTTL
	}
	body := make(map[string]any, len(payload)+1)
	maps.Copy(body, payload)
	body["exp"] = v.now().Add(ttl).Unix()
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode code: %w", err)
	}
	return v.cipher.EncryptRandom(string(raw))
}
