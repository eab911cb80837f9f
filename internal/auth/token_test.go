package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyPopulatesClaims(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	exp := time.Now().Add(time.Hour)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":           "user-123",
		"email":         "user@example.com",
		"exp":           exp.Unix(),
		"user_metadata": map[string]any{"plan": "pro"},
	})

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Metadata["plan"] != "pro" {
		t.Fatalf("unexpected metadata: %#v", claims.Metadata)
	}
	if claims.ExpiresAt.Unix() != exp.Unix() {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)
	token := signToken(t, "another-secret", jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)
	if _, err := verifier.Verify("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyMissingExpiry(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user-123"})
	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing exp, got %v", err)
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
