package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/nvc-api/internal/model"
	"github.com/hitoshi/nvc-api/internal/repository"
)

// --- モック ---

type mockAPIKeyRepo struct {
	createFn          func(ctx context.Context, key *model.APIKey) error
	findActiveByKeyFn func(ctx context.Context, key string) (*model.APIKey, error)
	revokeFn          func(ctx context.Context, id int64) error
}

func (m *mockAPIKeyRepo) Create(ctx context.Context, key *model.APIKey) error {
	if m.createFn != nil {
		return m.createFn(ctx, key)
	}
	key.ID = 1
	return nil
}
func (m *mockAPIKeyRepo) FindActiveByKey(ctx context.Context, key string) (*model.APIKey, error) {
	if m.findActiveByKeyFn != nil {
		return m.findActiveByKeyFn(ctx, key)
	}
	return nil, nil
}
func (m *mockAPIKeyRepo) Revoke(ctx context.Context, id int64) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id)
	}
	return nil
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("expected error code %s, got %s", code, apiErr.Code)
	}
}

// --- テスト ---

// TestService_Issue はキー発行が一意なキー文字列を生成することを検証する。
func TestService_Issue(t *testing.T) {
	var stored []*model.APIKey

	repo := &mockAPIKeyRepo{
		createFn: func(ctx context.Context, key *model.APIKey) error {
			key.ID = int64(len(stored) + 1)
			stored = append(stored, key)
			return nil
		},
	}

	svc := NewService(repo)

	first, err := svc.Issue(context.Background(), "frontend")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	second, err := svc.Issue(context.Background(), "batch")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if first.Key == "" {
		t.Error("expected non-empty key string")
	}
	if first.Key == second.Key {
		t.Error("expected issued keys to be distinct")
	}
	if !first.IsActive {
		t.Error("expected issued key to be active")
	}
	if first.Name != "frontend" {
		t.Errorf("expected key name frontend, got %q", first.Name)
	}
}

// TestService_Issue_StorageError は永続化失敗がSTORAGE_ERRORになることを検証する。
func TestService_Issue_StorageError(t *testing.T) {
	repo := &mockAPIKeyRepo{
		createFn: func(ctx context.Context, key *model.APIKey) error {
			return errors.New("connection reset")
		},
	}

	svc := NewService(repo)

	_, err := svc.Issue(context.Background(), "frontend")
	assertAPIErrorCode(t, err, model.ErrCodeStorageError)
}

// TestService_Verify は有効なキーの検証成功を検証する。
func TestService_Verify(t *testing.T) {
	repo := &mockAPIKeyRepo{
		findActiveByKeyFn: func(ctx context.Context, key string) (*model.APIKey, error) {
			return &model.APIKey{ID: 1, Key: key, Name: "frontend", IsActive: true}, nil
		},
	}

	svc := NewService(repo)

	key, err := svc.Verify(context.Background(), "valid-key")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if key.Name != "frontend" {
		t.Errorf("expected key record, got %+v", key)
	}
}

// TestService_Verify_Invalid は未知・失効済み・未指定のキーが
// INVALID_API_KEYになることを検証する。
func TestService_Verify_Invalid(t *testing.T) {
	svc := NewService(&mockAPIKeyRepo{})

	// 未知のキー（リポジトリはnilを返す）
	_, err := svc.Verify(context.Background(), "unknown-key")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidAPIKey)

	// 未指定
	_, err = svc.Verify(context.Background(), "")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidAPIKey)
}

// TestService_Revoke は失効処理の成功とNotFoundの変換を検証する。
func TestService_Revoke(t *testing.T) {
	revokedID := int64(0)

	repo := &mockAPIKeyRepo{
		revokeFn: func(ctx context.Context, id int64) error {
			revokedID = id
			return nil
		},
	}

	svc := NewService(repo)

	if err := svc.Revoke(context.Background(), 5); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if revokedID != 5 {
		t.Errorf("expected revoke for ID 5, got %d", revokedID)
	}
}

// TestService_Revoke_NotFound は存在しないキーの失効が
// API_KEY_NOT_FOUNDになることを検証する。
func TestService_Revoke_NotFound(t *testing.T) {
	repo := &mockAPIKeyRepo{
		revokeFn: func(ctx context.Context, id int64) error {
			return repository.ErrKeyNotFound
		},
	}

	svc := NewService(repo)

	err := svc.Revoke(context.Background(), 999)
	assertAPIErrorCode(t, err, model.ErrCodeAPIKeyNotFound)
}
