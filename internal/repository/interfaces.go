// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/nvc-api/internal/model"
)

// UserRepository はユーザーレコードの永続化インターフェース。
// 各操作は呼び出し元リクエストのスコープ内で完結する。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// Create はユーザーを作成し、ストア採番のIDとcreated_atをuserに書き戻す。
	// emailの一意制約違反の場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// Delete は指定IDのユーザーを削除する。
	Delete(ctx context.Context, id int64) error

	// ListAll は全ユーザーを作成日時の昇順で返す。
	ListAll(ctx context.Context) ([]*model.User, error)
}

// APIKeyRepository はAPIキーの永続化インターフェース。
type APIKeyRepository interface {
	// Create はAPIキーを作成し、ストア採番のIDとcreated_atをkeyに書き戻す。
	Create(ctx context.Context, key *model.APIKey) error

	// FindActiveByKey は有効なAPIキーをキー文字列で検索する。
	// 見つからない場合・失効済みの場合はnilを返す。
	FindActiveByKey(ctx context.Context, key string) (*model.APIKey, error)

	// Revoke は指定IDのAPIキーを失効させる（is_active=false、revoked_atを記録）。
	// 対象が存在しないか既に失効済みの場合はErrKeyNotFoundを返す。
	Revoke(ctx context.Context, id int64) error
}
