package token

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the claim set of an access token. Name and Role carry
// textcrypto ciphertext, never plaintext.
type AccessClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// NewAccessClaims builds the caller-supplied part of an access token.
func NewAccessClaims(subject, encName, encRole string) AccessClaims {
	return AccessClaims{
		Name:             encName,
		Role:             encRole,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func NewRefreshClaims(subject string) RefreshClaims {
	return RefreshClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
}
