package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestParseBearerToken(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		expected string
	}{
		{"standard bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc", "abc"},
		{"missing scheme", "abc.def.ghi", ""},
		{"empty header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseBearerToken(tc.header); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestVerifyAccessToken(t *testing.T) {
	validClaims := Claims{
		UserID:   12,
		Username: "cashier1",
		Role:     RoleCashier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, validClaims, testSecret, jwt.SigningMethodHS256)
		claims, err := VerifyAccessToken(token, testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.UserID != 12 || claims.Username != "cashier1" || claims.Role != RoleCashier {
			t.Fatalf("claims not round-tripped: %+v", claims)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		if _, err := VerifyAccessToken("", testSecret); err == nil {
			t.Fatalf("expected error for empty token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, validClaims, "other-secret", jwt.SigningMethodHS256)
		if _, err := VerifyAccessToken(token, testSecret); err == nil {
			t.Fatalf("expected error for wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := validClaims
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		token := signToken(t, expired, testSecret, jwt.SigningMethodHS256)
		if _, err := VerifyAccessToken(token, testSecret); err == nil {
			t.Fatalf("expected error for expired token")
		}
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp := validClaims
		noExp.RegisteredClaims = jwt.RegisteredClaims{}
		token := signToken(t, noExp, testSecret, jwt.SigningMethodHS256)
		if _, err := VerifyAccessToken(token, testSecret); err == nil {
			t.Fatalf("expected error for token without expiry")
		}
	})
}
