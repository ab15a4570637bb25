package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/nvc-api/internal/model"
)

// NewAdminMiddleware は管理者エンドポイント用の認可ミドルウェアを返す。
// AuthorizationヘッダーのBearerトークンをHMAC-SHA256署名のJWTとして検証し、
// roleクレームがadminであることを要求する。有効期限(exp)はJWTの標準検証に従う。
func NewAdminMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminOnlyError())
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminOnlyError())
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || claims["role"] != "admin" {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminOnlyError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
