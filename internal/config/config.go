// Package config reads the process-wide settings from the environment.
// Values are read once at startup and treated as immutable afterwards.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr         string
	DatabaseURI  string
	ProductAPI   string
	ProxyTimeout time.Duration

	// AES key and IV, decoded from base64
	AESKey []byte
	AESIV  []byte

	Issuer    string
	Algorithm string

	AccessSecret       string
	AccessTTL          time.Duration
	RefreshSecret      string
	RefreshTTL         time.Duration
	VerificationSecret string
	VerificationTTL    time.Duration

	AdminRole string
	UserRole  string

	CookieDomain string
	LoginRate    string
}

// FromEnv reads the configuration. Call godotenv.Load first to pick up a
// local .env file.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv over an arbitrary lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var errs []error
	minutes := func(key string, def int) time.Duration {
		raw := get(key, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: expected positive integer, got %q", key, raw))
			return 0
		}
		return time.Duration(n) * time.Minute
	}
	decode := func(key string) []byte {
		raw := get(key, "")
		if raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
			return nil
		}
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid base64: %w", key, err))
			return nil
		}
		return b
	}
	required := func(key string) string {
		v := get(key, "")
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}

	timeout, err := strconv.Atoi(get("PRODUCT_API_TIMEOUT_SECONDS", "50"))
	if err != nil || timeout <= 0 {
		errs = append(errs, errors.New("PRODUCT_API_TIMEOUT_SECONDS: expected positive integer"))
	}

	cfg := Config{
		Addr:               get("HTTP_ADDR", "0.0.0.0:8431"),
		DatabaseURI:        get("URI", get("DATABASE_URL", "")),
		ProductAPI:         required("PRODUCT_API"),
		ProxyTimeout:       time.Duration(timeout) * time.Second,
		AESKey:             decode("AES_SECRET_KEY"),
		AESIV:              decode("VI_SECRET_KEY"),
		Issuer:             required("ISSUER"),
		Algorithm:          get("ALGORITHM", "HS256"),
		AccessSecret:       required("ACCESS_TOKEN_SECRET_KEY"),
		AccessTTL:          minutes("ACCESS_TOKEN_EXPIRE_MINUTES", 15),
		RefreshSecret:      required("REFRESH_TOKEN_SECRET_KEY"),
		RefreshTTL:         minutes("REFRESH_TOKEN_EXPIRE_MINUTES", 60*24),
		VerificationSecret: get("VERIFICATION_TOKEN_SECRET_KEY", ""),
		VerificationTTL:    minutes("VERIFICATION_TOKEN_EXPIRE_MINUTES", 30),
		AdminRole:          required("ADMIN_ROLE"),
		UserRole:           required("USER_ROLE"),
		CookieDomain:       get("COOKIE_DOMAIN", ""),
		LoginRate:          get("LOGIN_RATE", "10-M"),
	}
	if cfg.AccessSecret != "" && cfg.AccessSecret == cfg.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET_KEY and REFRESH_TOKEN_SECRET_KEY must differ"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
