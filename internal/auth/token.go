// Package auth verifies the bearer tokens Supabase issues and exposes the
// claims the request pipeline attaches to authenticated requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired marks a structurally valid token whose exp claim has passed.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid marks a malformed token or one signed with the wrong secret.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims carries the identity fields decoded from a verified access token.
// Reconstructed per request, never persisted.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	Metadata  map[string]any
}

// Verifier validates access tokens against the shared Supabase JWT secret.
// Verification is purely local: signature and expiry checks, no network calls.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for tokens signed with the given symmetric secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Verify returns the token's claims, ErrTokenExpired, or ErrTokenInvalid.
// The two failure kinds stay distinguishable here; the middleware collapses
// them into one client-visible 401 so forged and expired tokens look the same
// from the outside.
func (v *Verifier) Verify(token string) (Claims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}

	claims := Claims{
		Subject:  tc.Subject,
		Email:    tc.Email,
		Metadata: tc.UserMetadata,
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	if claims.Metadata == nil {
		claims.Metadata = map[string]any{}
	}
	return claims, nil
}
