// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nvc-api/internal/model"
	"github.com/hitoshi/nvc-api/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register はユーザーを登録する。プロバイダー作成成功後にローカルレコードを作成する。
	Register(ctx context.Context, input user.RegisterInput) (*model.User, error)
	// Login はIDプロバイダーで認証し、プロフィールとセッショントークンを返す。
	Login(ctx context.Context, email, password string) (*user.LoginResult, error)
	// Delete はユーザーを削除し、削除直前のスナップショットを返す。
	Delete(ctx context.Context, userID int64, token string) (*model.User, error)
	// SendVerification は確認メール送信をプロバイダーに委譲する。
	SendVerification(ctx context.Context, token string) error
	// ConfirmVerification はメール確認をプロバイダーに委譲する。
	ConfirmVerification(ctx context.Context, token, secret string) error
	// SendRecovery はリカバリーメール送信をプロバイダーに委譲する。
	SendRecovery(ctx context.Context, email string) error
	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.User, error)
	// GetByEmail は指定メールアドレスのユーザーを返す。
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	NationalID  string `json:"national_id"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// confirmVerificationRequest はメール確認リクエストのボディ。
type confirmVerificationRequest struct {
	Secret string `json:"secret"`
}

// recoveryRequest はパスワードリカバリーリクエストのボディ。
type recoveryRequest struct {
	Email string `json:"email"`
}

// userResponse はユーザー情報のAPIレスポンス。
// password_hashは決して含めない。
type userResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	NationalID  string    `json:"national_id"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// loginResponse はログイン成功時のAPIレスポンス。
type loginResponse struct {
	userResponse
	Token string `json:"token"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Register はユーザー登録を処理する。
// POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	// phone_numberのみ任意。それ以外は必須フィールドとする。
	if req.Name == "" || req.Email == "" || req.Password == "" || req.NationalID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "name、email、password、national_idは必須です。",
			Category: "validation",
			Action:   "必須フィールドをすべて指定してください。",
		})
		return
	}

	created, err := h.service.Register(r.Context(), user.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		NationalID:  req.NationalID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(created))
}

// Login はログインを処理する。
// POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "emailとpasswordは必須です。",
			Category: "validation",
			Action:   "メールアドレスとパスワードを指定してください。",
		})
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		userResponse: toUserResponse(result.User),
		Token:        result.Token,
	})
}

// Delete はユーザー削除を処理する。削除したレコードのスナップショットを返す。
// DELETE /api/users/:id
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeMissingTokenResponse(w)
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "ユーザーIDが不正です。",
			Category: "validation",
			Action:   "数値のユーザーIDを指定してください。",
		})
		return
	}

	deleted, err := h.service.Delete(r.Context(), userID, token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(deleted))
}

// List は全ユーザーの一覧を返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetByEmail はメールアドレスでユーザーを検索する。
// GET /api/users/email/:email
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	found, err := h.service.GetByEmail(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(found))
}

// SendVerification は確認メール送信を処理する。
// POST /api/users/verification
func (h *UserHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeMissingTokenResponse(w)
		return
	}

	if err := h.service.SendVerification(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "確認メールを送信しました。"})
}

// ConfirmVerification はメール確認を処理する。
// PUT /api/users/verification
func (h *UserHandler) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeMissingTokenResponse(w)
		return
	}

	var req confirmVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Secret == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "secretは必須です。",
			Category: "validation",
			Action:   "確認メールに記載されたシークレットを指定してください。",
		})
		return
	}

	if err := h.service.ConfirmVerification(r.Context(), token, req.Secret); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "メールアドレスを確認しました。"})
}

// SendRecovery はパスワードリカバリーメール送信を処理する。
// POST /api/users/recovery
func (h *UserHandler) SendRecovery(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "emailは必須です。",
			Category: "validation",
			Action:   "メールアドレスを指定してください。",
		})
		return
	}

	if err := h.service.SendRecovery(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "パスワードリセットメールを送信しました。"})
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		NationalID:  u.NationalID,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// writeMissingTokenResponse はセッショントークン未指定のエラーレスポンスを書き込む。
func writeMissingTokenResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "セッショントークンが必要です。",
		Category: "auth",
		Action:   "AuthorizationヘッダーにBearerトークンを指定してください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析失敗のエラーレスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserAlreadyExists, model.ErrCodeProviderUserExists:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials, model.ErrCodeInvalidAPIKey:
		return http.StatusUnauthorized
	case model.ErrCodeAdminOnly:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeAPIKeyNotFound:
		return http.StatusNotFound
	case model.ErrCodeProviderError:
		return http.StatusBadGateway
	case model.ErrCodeStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
