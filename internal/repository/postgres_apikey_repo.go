package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/nvc-api/internal/model"
)

// ErrKeyNotFound は対象のAPIキーが存在しないか既に失効済みであることを表す。
var ErrKeyNotFound = errors.New("api key not found")

// PostgresAPIKeyRepo はPostgreSQLを使用したAPIキーリポジトリ。
type PostgresAPIKeyRepo struct {
	db *sql.DB
}

// NewPostgresAPIKeyRepo はPostgresAPIKeyRepoを生成する。
func NewPostgresAPIKeyRepo(db *sql.DB) *PostgresAPIKeyRepo {
	return &PostgresAPIKeyRepo{db: db}
}

// Create はAPIキーを作成し、ストア採番のIDとcreated_atをkeyに書き戻す。
func (r *PostgresAPIKeyRepo) Create(ctx context.Context, key *model.APIKey) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO api_keys (key, name, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		key.Key, key.Name, key.IsActive,
	).Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	return nil
}

// FindActiveByKey は有効なAPIキーをキー文字列で検索する。
// 見つからない場合・失効済みの場合はnilを返す。
func (r *PostgresAPIKeyRepo) FindActiveByKey(ctx context.Context, keyStr string) (*model.APIKey, error) {
	key := &model.APIKey{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, name, is_active, created_at, revoked_at
		 FROM api_keys WHERE key = $1 AND is_active = TRUE`,
		keyStr,
	).Scan(&key.ID, &key.Key, &key.Name, &key.IsActive, &key.CreatedAt, &revokedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find api key: %w", err)
	}

	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}

	return key, nil
}

// Revoke は指定IDのAPIキーを失効させる。
// 対象が存在しないか既に失効済みの場合はErrKeyNotFoundを返す。
func (r *PostgresAPIKeyRepo) Revoke(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = FALSE, revoked_at = now()
		 WHERE id = $1 AND is_active = TRUE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// compile-time interface check
var _ APIKeyRepository = (*PostgresAPIKeyRepo)(nil)
