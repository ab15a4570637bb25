package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testAdminSecret = "test-admin-secret-32bytes-long!!!"

// signTestToken はテスト用のHMAC署名JWTを生成する。
func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func callAdminMiddleware(t *testing.T, authorization string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	nextCalled := false
	handler := NewAdminMiddleware(testAdminSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	return rec, nextCalled
}

// TestAdminMiddleware_ValidToken はroleクレームがadminの署名済みトークンで
// リクエストが通過することを検証する。
func TestAdminMiddleware_ValidToken(t *testing.T) {
	token := signTestToken(t, testAdminSecret, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec, nextCalled := callAdminMiddleware(t, "Bearer "+token)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if !nextCalled {
		t.Error("expected next handler to be called")
	}
}

// TestAdminMiddleware_MissingToken はトークン未指定が403になることを検証する。
func TestAdminMiddleware_MissingToken(t *testing.T) {
	rec, nextCalled := callAdminMiddleware(t, "")

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if nextCalled {
		t.Error("next handler must not be called without token")
	}
}

// TestAdminMiddleware_WrongSecret は別シークレットで署名されたトークンが
// 拒否されることを検証する。
func TestAdminMiddleware_WrongSecret(t *testing.T) {
	token := signTestToken(t, "another-secret", jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec, nextCalled := callAdminMiddleware(t, "Bearer "+token)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if nextCalled {
		t.Error("next handler must not be called for invalid signature")
	}
}

// TestAdminMiddleware_NonAdminRole はroleクレームがadmin以外のトークンが
// 拒否されることを検証する。
func TestAdminMiddleware_NonAdminRole(t *testing.T) {
	token := signTestToken(t, testAdminSecret, jwt.MapClaims{
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	rec, _ := callAdminMiddleware(t, "Bearer "+token)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}

// TestAdminMiddleware_ExpiredToken は期限切れトークンが拒否されることを検証する。
func TestAdminMiddleware_ExpiredToken(t *testing.T) {
	token := signTestToken(t, testAdminSecret, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	rec, _ := callAdminMiddleware(t, "Bearer "+token)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}
