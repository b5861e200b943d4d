package authz

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/token"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Middleware authenticates requests with the access token and applies a
// role check before calling the next handler.
type Middleware struct {
	tokens *token.Service
	gate   *Gate
	logger *zap.SugaredLogger
}

func NewMiddleware(tokens *token.Service, gate *Gate, logger *zap.SugaredLogger) *Middleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Middleware{tokens: tokens, gate: gate, logger: logger}
}

// Admin allows only the admin role.
func (m *Middleware) Admin(next http.Handler) http.Handler {
	return m.wrap(next, m.gate.RequireAdmin)
}

// Member allows the admin and user roles.
func (m *Middleware) Member(next http.Handler) http.Handler {
	return m.wrap(next, m.gate.RequireMember)
}

func (m *Middleware) wrap(next http.Handler, check func(Identity) (Identity, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.identify(r)
		if err == nil {
			id, err = check(id)
		}
		if err != nil {
			metrics.RecordAuthAttempt("access", false)
			m.logger.Debugw("request rejected", "path", r.URL.Path, "err", err)
			apperr.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) identify(r *http.Request) (Identity, error) {
	raw := AccessToken(r)
	if raw == "" {
		return Identity{}, apperr.ErrCredentialsInvalid
	}
	claims, err := m.tokens.ValidateAccessToken(raw)
	if err != nil {
		return Identity{}, err
	}
	return m.gate.ResolveCaller(claims)
}

// AccessToken reads the access token cookie, falling back to a Bearer header.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearer(r)
}

// RefreshToken reads the refresh token cookie, falling back to a Bearer header.
func RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearer(r)
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
