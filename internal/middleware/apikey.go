// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hitoshi/nvc-api/internal/model"
)

// apiKeyHeader はクライアントがAPIキーを渡すヘッダー名。
const apiKeyHeader = "X-API-Key"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// apiKeyNameContextKey はリクエストコンテキストにAPIキー名を格納するためのキー。
var apiKeyNameContextKey = contextKey("api_key_name")

// KeyVerifier はAPIキーの検証に必要なインターフェース。
// apikey.Serviceの部分集合として定義する。
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (*model.APIKey, error)
}

// NewAPIKeyMiddleware はX-API-KeyヘッダーのAPIキーを検証するミドルウェアを返す。
// 検証済みキーの名前をリクエストコンテキストに注入する。
// 無効・未指定のキーには401 Unauthorizedを返す。
func NewAPIKeyMiddleware(verifier KeyVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := verifier.Verify(r.Context(), r.Header.Get(apiKeyHeader))
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidAPIKey {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				WriteInternalServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyNameContextKey, key.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyNameFromContext はリクエストコンテキストからAPIキー名を取得する。
// APIキーミドルウェアを通過したリクエストでのみ有効。
func APIKeyNameFromContext(ctx context.Context) (string, error) {
	name, ok := ctx.Value(apiKeyNameContextKey).(string)
	if !ok || name == "" {
		return "", fmt.Errorf("api key name not found in context")
	}
	return name, nil
}

// ContextWithAPIKeyName はコンテキストにAPIキー名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAPIKeyName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, apiKeyNameContextKey, name)
}
