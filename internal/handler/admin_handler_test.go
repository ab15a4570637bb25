package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nvc-api/internal/model"
)

// --- モック ---

type mockAPIKeyService struct {
	issueFn  func(ctx context.Context, name string) (*model.APIKey, error)
	revokeFn func(ctx context.Context, id int64) error
}

func (m *mockAPIKeyService) Issue(ctx context.Context, name string) (*model.APIKey, error) {
	return m.issueFn(ctx, name)
}
func (m *mockAPIKeyService) Revoke(ctx context.Context, id int64) error {
	return m.revokeFn(ctx, id)
}

func newTestAdminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/admin/api-keys", func(r chi.Router) {
		r.Post("/", h.IssueKey)
		r.Delete("/{id}", h.RevokeKey)
	})
	return r
}

// --- テスト ---

// TestAdminHandler_IssueKey は発行成功が201とキー文字列を含むレスポンスに
// なることを検証する。
func TestAdminHandler_IssueKey(t *testing.T) {
	svc := &mockAPIKeyService{
		issueFn: func(ctx context.Context, name string) (*model.APIKey, error) {
			return &model.APIKey{ID: 1, Key: "generated-key", Name: name, IsActive: true}, nil
		},
	}
	router := newTestAdminRouter(NewAdminHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", strings.NewReader(`{"name":"frontend"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["api_key"] != "generated-key" {
		t.Errorf("expected api_key in response, got %v", resp)
	}
	if resp["name"] != "frontend" {
		t.Errorf("expected name in response, got %v", resp)
	}
}

// TestAdminHandler_IssueKey_MissingName はname未指定が400になることを検証する。
func TestAdminHandler_IssueKey_MissingName(t *testing.T) {
	svc := &mockAPIKeyService{
		issueFn: func(ctx context.Context, name string) (*model.APIKey, error) {
			t.Fatal("service must not be called for invalid request")
			return nil, nil
		},
	}
	router := newTestAdminRouter(NewAdminHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// TestAdminHandler_RevokeKey は失効成功が204になることを検証する。
func TestAdminHandler_RevokeKey(t *testing.T) {
	revokedID := int64(0)
	svc := &mockAPIKeyService{
		revokeFn: func(ctx context.Context, id int64) error {
			revokedID = id
			return nil
		},
	}
	router := newTestAdminRouter(NewAdminHandler(svc))

	req := httptest.NewRequest(http.MethodDelete, "/admin/api-keys/5", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if revokedID != 5 {
		t.Errorf("expected revoke for ID 5, got %d", revokedID)
	}
}

// TestAdminHandler_RevokeKey_NotFound は存在しないキーの失効が404に
// なることを検証する。
func TestAdminHandler_RevokeKey_NotFound(t *testing.T) {
	svc := &mockAPIKeyService{
		revokeFn: func(ctx context.Context, id int64) error {
			return model.NewAPIKeyNotFoundError(id)
		},
	}
	router := newTestAdminRouter(NewAdminHandler(svc))

	req := httptest.NewRequest(http.MethodDelete, "/admin/api-keys/999", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
