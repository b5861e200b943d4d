// Package authz turns validated token claims into a caller identity and
// enforces role checks on it.
package authz

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/repo"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
)

// Identity is the decrypted caller behind an access token.
type Identity struct {
	ID       string `json:"user_uuid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Gate struct {
	cipher    *textcrypto.Cipher
	dir       repo.Directory
	adminRole string
	userRole  string
}

func NewGate(cipher *textcrypto.Cipher, dir repo.Directory, adminRole, userRole string) *Gate {
	return &Gate{cipher: cipher, dir: dir, adminRole: adminRole, userRole: userRole}
}

// ResolveCaller decrypts the name and role claims. A claim that fails to
// decrypt was tampered with and is reported as invalid credentials.
func (g *Gate) ResolveCaller(c *token.AccessClaims) (Identity, error) {
	if c == nil {
		return Identity{}, apperr.ErrCredentialsInvalid
	}
	name, err := g.cipher.Decrypt(c.Name)
	if err != nil {
		return Identity{}, apperr.ErrCredentialsInvalid
	}
	role, err := g.cipher.Decrypt(c.Role)
	if err != nil {
		return Identity{}, apperr.ErrCredentialsInvalid
	}
	return Identity{ID: c.Subject, Username: name, Role: role}, nil
}

// RequireRefreshable looks the subject up again so a deleted or disabled
// account cannot keep refreshing.
func (g *Gate) RequireRefreshable(ctx context.Context, c jwt.Claims) (*entity.Credential, error) {
	sub, err := c.GetSubject()
	if err != nil || sub == "" {
		return nil, apperr.ErrCredentialsInvalid
	}
	cred, err := g.dir.FindByID(ctx, sub)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, apperr.ErrPermissionDenied
	}
	return cred, nil
}

// RequireAdmin passes id through when its role is exactly the admin role.
func (g *Gate) RequireAdmin(id Identity) (Identity, error) {
	if g.adminRole == "" || id.Role != g.adminRole {
		return Identity{}, apperr.ErrPermissionDenied
	}
	return id, nil
}

// RequireMember accepts the admin and user roles.
func (g *Gate) RequireMember(id Identity) (Identity, error) {
	if id.Role == "" || (id.Role != g.adminRole && id.Role != g.userRole) {
		return Identity{}, apperr.ErrPermissionDenied
	}
	return id, nil
}
