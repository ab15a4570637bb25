package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/nvc-api/internal/metrics"
	"github.com/hitoshi/nvc-api/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	UserService   UserServiceInterface
	APIKeyService APIKeyServiceInterface

	HealthChecker HealthChecker
	KeyVerifier   middleware.KeyVerifier
	RateLimiter   *middleware.RateLimiter

	AdminTokenSecret  string
	CORSAllowedOrigin string

	Logger   *slog.Logger
	Metrics  middleware.HTTPStatusRecorder
	Gatherer prometheus.Gatherer
}

// NewRouter はAPIのルーティングを構築する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	userHandler := NewUserHandler(deps.UserService)
	adminHandler := NewAdminHandler(deps.APIKeyService)

	// --- 認証不要のルート ---
	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- APIキーが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.KeyVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/users", func(r chi.Router) {
			// 登録・ログインは専用のレート制限を重ねて適用する
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/", userHandler.Register)
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", userHandler.Login)

			r.Get("/", userHandler.List)
			r.Get("/email/{email}", userHandler.GetByEmail)
			r.Delete("/{id}", userHandler.Delete)

			r.Post("/verification", userHandler.SendVerification)
			r.Put("/verification", userHandler.ConfirmVerification)
			r.Post("/recovery", userHandler.SendRecovery)
		})
	})

	// --- 管理者ルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminMiddleware(deps.AdminTokenSecret))

		r.Route("/admin/api-keys", func(r chi.Router) {
			r.Post("/", adminHandler.IssueKey)
			r.Delete("/{id}", adminHandler.RevokeKey)
		})
	})

	return r
}

// newHealthHandler はデータベース接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
