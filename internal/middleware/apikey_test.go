package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nvc-api/internal/model"
)

// --- モック ---

type mockKeyVerifier struct {
	verifyFn func(ctx context.Context, key string) (*model.APIKey, error)
}

func (m *mockKeyVerifier) Verify(ctx context.Context, key string) (*model.APIKey, error) {
	return m.verifyFn(ctx, key)
}

// --- テスト ---

// TestAPIKeyMiddleware_ValidKey は有効なキーでリクエストが通過し、
// キー名がコンテキストに注入されることを検証する。
func TestAPIKeyMiddleware_ValidKey(t *testing.T) {
	verifier := &mockKeyVerifier{
		verifyFn: func(ctx context.Context, key string) (*model.APIKey, error) {
			if key != "valid-key" {
				t.Errorf("expected key from header, got %q", key)
			}
			return &model.APIKey{ID: 1, Key: key, Name: "frontend", IsActive: true}, nil
		},
	}

	var gotName string
	handler := NewAPIKeyMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName, _ = APIKeyNameFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if gotName != "frontend" {
		t.Errorf("expected api key name in context, got %q", gotName)
	}
}

// TestAPIKeyMiddleware_InvalidKey は無効なキーが401で拒否されることを検証する。
func TestAPIKeyMiddleware_InvalidKey(t *testing.T) {
	verifier := &mockKeyVerifier{
		verifyFn: func(ctx context.Context, key string) (*model.APIKey, error) {
			return nil, model.NewInvalidAPIKeyError()
		},
	}

	nextCalled := false
	handler := NewAPIKeyMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "bogus")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if nextCalled {
		t.Error("next handler must not be called for invalid key")
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	if body["code"] != model.ErrCodeInvalidAPIKey {
		t.Errorf("expected error code %s, got %q", model.ErrCodeInvalidAPIKey, body["code"])
	}
}

// TestAPIKeyMiddleware_VerifierFailure は検証処理自体の失敗が500になることを検証する。
func TestAPIKeyMiddleware_VerifierFailure(t *testing.T) {
	verifier := &mockKeyVerifier{
		verifyFn: func(ctx context.Context, key string) (*model.APIKey, error) {
			return nil, errors.New("db connection lost")
		},
	}

	handler := NewAPIKeyMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

// TestAPIKeyNameFromContext はコンテキスト未設定時のエラーを検証する。
func TestAPIKeyNameFromContext_Missing(t *testing.T) {
	if _, err := APIKeyNameFromContext(context.Background()); err == nil {
		t.Error("expected error for missing api key name")
	}

	ctx := ContextWithAPIKeyName(context.Background(), "batch")
	name, err := APIKeyNameFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if name != "batch" {
		t.Errorf("expected name batch, got %q", name)
	}
}
