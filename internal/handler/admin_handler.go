package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nvc-api/internal/model"
)

// APIKeyServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type APIKeyServiceInterface interface {
	// Issue は新しいAPIキーを発行する。
	Issue(ctx context.Context, name string) (*model.APIKey, error)
	// Revoke は指定IDのAPIキーを失効させる。
	Revoke(ctx context.Context, id int64) error
}

// AdminHandler はAPIキー管理のHTTPハンドラー。
// 管理者ミドルウェアの内側に配置することを前提とする。
type AdminHandler struct {
	service APIKeyServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service APIKeyServiceInterface) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

// issueKeyRequest はAPIキー発行リクエストのボディ。
type issueKeyRequest struct {
	Name string `json:"name"`
}

// apiKeyResponse はAPIキーのAPIレスポンス。
// キー文字列は発行時のレスポンスでのみクライアントに渡る。
type apiKeyResponse struct {
	ID        int64     `json:"id"`
	APIKey    string    `json:"api_key"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueKey はAPIキー発行を処理する。
// POST /admin/api-keys
func (h *AdminHandler) IssueKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "nameは必須です。",
			Category: "validation",
			Action:   "APIキーの用途がわかる名前を指定してください。",
		})
		return
	}

	key, err := h.service.Issue(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(apiKeyResponse{
		ID:        key.ID,
		APIKey:    key.Key,
		Name:      key.Name,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	})
}

// RevokeKey はAPIキー失効を処理する。
// DELETE /admin/api-keys/:id
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "APIキーのIDが不正です。",
			Category: "validation",
			Action:   "数値のIDを指定してください。",
		})
		return
	}

	if err := h.service.Revoke(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
