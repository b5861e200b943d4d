package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/authz"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
)

// memDir is an in-memory repo.Directory.
type memDir struct {
	mu      sync.Mutex
	rows    []*entity.Credential
	err     error
	failed  map[string]int
	resets  map[string]int
	lookups int
	now     func() time.Time
}

func newMemDir(rows ...*entity.Credential) *memDir {
	return &memDir{rows: rows, failed: map[string]int{}, resets: map[string]int{}, now: time.Now}
}

func (d *memDir) FindByID(_ context.Context, id string) (*entity.Credential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if d.err != nil {
		return nil, d.err
	}
	for _, c := range d.rows {
		if c.UUID == id && c.Enabled {
			return c, nil
		}
	}
	return nil, nil
}

func (d *memDir) FindByUsernameHash(_ context.Context, hash string) (*entity.Credential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if d.err != nil {
		return nil, d.err
	}
	for _, c := range d.rows {
		if c.EmailSHA == hash {
			return c, nil
		}
	}
	return nil, nil
}

func (d *memDir) RecordFailedAttempt(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed[id]++
	if c := d.row(id); c != nil {
		c.Attempts++
		at := d.now()
		c.LastAttempt = &at
	}
	return nil
}

func (d *memDir) ResetAttempts(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets[id]++
	if c := d.row(id); c != nil {
		c.Attempts = 0
		at := d.now()
		c.LastAttempt = &at
	}
	return nil
}

func (d *memDir) row(id string) *entity.Credential {
	for _, c := range d.rows {
		if c.UUID == id {
			return c
		}
	}
	return nil
}

type fixture struct {
	cipher   *textcrypto.Cipher
	dir      *memDir
	tokens   *token.Service
	gate     *authz.Gate
	verifier *Verifier
	svc      *AdminService
	now      time.Time
}

const (
	aliceEmail    = "alice@example.com"
	alicePassword = "correct horse"
	aliceID       = "0b6f1c58-8a4e-4a57-9d51-2f1d6c1e7a10"
)

func newCredential(t *testing.T, c *textcrypto.Cipher, id, email, password string, enabled bool) *entity.Credential {
	t.Helper()
	hash, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(password)
	require.NoError(t, err)
	info := c.Info(email)
	return &entity.Credential{
		ID:           1,
		UUID:         id,
		EmailAES:     info.Encrypted,
		EmailSHA:     info.Hashed,
		PasswordHash: hash,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Enabled:      enabled,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := textcrypto.New([]byte("0123456789abcdef"), []byte("abcdef9876543210"))
	require.NoError(t, err)

	f := &fixture{cipher: c, now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.dir = newMemDir(
		newCredential(t, c, aliceID, aliceEmail, alicePassword, true),
		newCredential(t, c, "7d1c2a8e-1111-4c3b-8f00-000000000002", "bob@example.com", "bob-pass", false),
	)
	f.dir.now = func() time.Time { return f.now }
	f.tokens, err = token.NewService(token.Config{
		Issuer:        "admin-api",
		Algorithm:     "HS256",
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
	}, token.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	f.gate = authz.NewGate(c, f.dir, "admin", "user")
	f.verifier, err = NewVerifier(f.dir, BcryptHasher{Cost: bcrypt.MinCost}, c, 30*time.Minute, nil)
	require.NoError(t, err)
	f.verifier.now = func() time.Time { return f.now }
	f.svc = NewAdminService(f.dir, f.verifier, f.tokens, f.gate, c, "admin", nil)
	return f
}
