package authz

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Cookies writes and clears the token cookies. Lifetimes follow the token TTLs.
type Cookies struct {
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

func NewCookies(domain string, accessTTL, refreshTTL time.Duration) *Cookies {
	return &Cookies{Domain: domain, AccessTTL: accessTTL, RefreshTTL: refreshTTL, now: time.Now}
}

func (c *Cookies) SetAccess(w http.ResponseWriter, tok string) {
	c.set(w, AccessCookie, tok, c.AccessTTL)
}

func (c *Cookies) SetRefresh(w http.ResponseWriter, tok string) {
	c.set(w, RefreshCookie, tok, c.RefreshTTL)
}

func (c *Cookies) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  c.now().Add(ttl).UTC(),
	})
}

func (c *Cookies) Expire(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
			MaxAge:   -1,
		})
	}
}
