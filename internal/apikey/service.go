// Package apikey はAPIキーの発行・検証・失効を提供する。
package apikey

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/nvc-api/internal/model"
	"github.com/hitoshi/nvc-api/internal/repository"
)

// Service はAPIキー管理のサービス層。
type Service struct {
	repo repository.APIKeyRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.APIKeyRepository) *Service {
	return &Service{repo: repo}
}

// Issue は新しいAPIキーを発行する。
// キー文字列は乱数由来のUUIDで、一意性は衝突確率の低さのみに依存する
// （発行時の重複チェックは行わない）。
func (s *Service) Issue(ctx context.Context, name string) (*model.APIKey, error) {
	key := &model.APIKey{
		Key:      uuid.New().String(),
		Name:     name,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, key); err != nil {
		slog.Error("failed to issue api key",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}

	slog.Info("api key issued",
		slog.Int64("key_id", key.ID),
		slog.String("name", name),
	)

	return key, nil
}

// Verify はAPIキー文字列を検証し、有効なキーのレコードを返す。
// 未知・失効済みのキーの場合はInvalidAPIKeyエラーを返す。
func (s *Service) Verify(ctx context.Context, keyStr string) (*model.APIKey, error) {
	if keyStr == "" {
		return nil, model.NewInvalidAPIKeyError()
	}

	key, err := s.repo.FindActiveByKey(ctx, keyStr)
	if err != nil {
		slog.Error("failed to verify api key", slog.String("error", err.Error()))
		return nil, model.NewStorageError()
	}
	if key == nil {
		return nil, model.NewInvalidAPIKeyError()
	}

	return key, nil
}

// Revoke は指定IDのAPIキーを失効させる。
func (s *Service) Revoke(ctx context.Context, id int64) error {
	if err := s.repo.Revoke(ctx, id); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return model.NewAPIKeyNotFoundError(id)
		}
		slog.Error("failed to revoke api key",
			slog.Int64("key_id", id),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}

	slog.Info("api key revoked", slog.Int64("key_id", id))
	return nil
}
