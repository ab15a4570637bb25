// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, user, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeProviderUserExists = "PROVIDER_USER_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeProviderError      = "PROVIDER_ERROR"
	ErrCodeStorageError       = "STORAGE_ERROR"
	ErrCodeInvalidAPIKey      = "INVALID_API_KEY"
	ErrCodeAdminOnly          = "ADMIN_ONLY"
	ErrCodeAPIKeyNotFound     = "API_KEY_NOT_FOUND"
)

// NewUserAlreadyExistsError はローカルDBに同一メールアドレスのユーザーが存在する場合のエラーを生成する。
func NewUserAlreadyExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  fmt.Sprintf("このメールアドレスのユーザーは既に登録されています: %s", email),
		Category: "user",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewProviderUserExistsError はIDプロバイダー側にアカウントが既に存在する場合のエラーを生成する。
func NewProviderUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderUserExists,
		Message:  "このメールアドレスのアカウントはIDプロバイダー側に既に存在します。",
		Category: "provider",
		Action:   "ログインするか、パスワードリセットを実行してください。",
	}
}

// NewInvalidCredentialsError は認証情報が不正な場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "指定されたユーザーがローカルDBに見つかりません。",
		Category: "user",
		Action:   "ユーザーIDまたはメールアドレスを確認してください。",
	}
}

// NewProviderError はIDプロバイダー呼び出しの失敗エラーを生成する。
// 診断のためプロバイダーからのメッセージをそのまま保持する。
func NewProviderError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  fmt.Sprintf("IDプロバイダーへのリクエストが失敗しました: %s", message),
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStorageError はローカルDBの永続化失敗エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewStorageError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageError,
		Message:  "データベース処理に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidAPIKeyError はAPIキーが無効な場合のエラーを生成する。
func NewInvalidAPIKeyError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAPIKey,
		Message:  "APIキーが無効または未指定です。",
		Category: "auth",
		Action:   "X-API-Keyヘッダーに有効なAPIキーを指定してください。",
	}
}

// NewAdminOnlyError は管理者権限がない場合のエラーを生成する。
func NewAdminOnlyError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminOnly,
		Message:  "この操作には管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者トークンを指定してください。",
	}
}

// NewAPIKeyNotFoundError は指定IDのAPIキーが存在しない場合のエラーを生成する。
func NewAPIKeyNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeAPIKeyNotFound,
		Message:  fmt.Sprintf("指定されたAPIキーが見つかりません: %d", id),
		Category: "validation",
		Action:   "APIキーのIDを確認してください。",
	}
}
