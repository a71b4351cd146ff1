package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pos-order-service/internal/auth"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, userID int64, role auth.UserRole) string {
	t.Helper()
	claims := auth.Claims{
		UserID:   userID,
		Username: "cashier1",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	var captured *AuthContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(testSecret)(next)

	t.Run("missing token rejected", func(t *testing.T) {
		captured = nil
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if captured != nil {
			t.Fatalf("handler must not run without auth")
		}
	})

	t.Run("valid token passes context", func(t *testing.T) {
		captured = nil
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, 7, auth.RoleManager))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured == nil {
			t.Fatalf("auth context missing")
		}
		if captured.UserID != 7 || captured.Role != auth.RoleManager {
			t.Fatalf("unexpected auth context: %+v", captured)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
