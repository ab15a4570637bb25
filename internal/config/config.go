package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider
	ProviderEndpoint  string
	ProviderProjectID string
	ProviderAPIKey    string
	ProviderTimeout   time.Duration

	// Redirect
	VerificationRedirectURL string
	RecoveryRedirectURL     string

	// Admin
	AdminTokenSecret string

	// Password
	BcryptCost int

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ProviderEndpoint = os.Getenv("PROVIDER_ENDPOINT")
	if cfg.ProviderEndpoint == "" {
		missing = append(missing, "PROVIDER_ENDPOINT")
	}

	cfg.ProviderProjectID = os.Getenv("PROVIDER_PROJECT_ID")
	if cfg.ProviderProjectID == "" {
		missing = append(missing, "PROVIDER_PROJECT_ID")
	}

	cfg.ProviderAPIKey = os.Getenv("PROVIDER_API_KEY")
	if cfg.ProviderAPIKey == "" {
		missing = append(missing, "PROVIDER_API_KEY")
	}

	cfg.AdminTokenSecret = os.Getenv("ADMIN_TOKEN_SECRET")
	if cfg.AdminTokenSecret == "" {
		missing = append(missing, "ADMIN_TOKEN_SECRET")
	}

	cfg.VerificationRedirectURL = os.Getenv("VERIFICATION_REDIRECT_URL")
	if cfg.VerificationRedirectURL == "" {
		missing = append(missing, "VERIFICATION_REDIRECT_URL")
	}

	cfg.RecoveryRedirectURL = os.Getenv("RECOVERY_REDIRECT_URL")
	if cfg.RecoveryRedirectURL == "" {
		missing = append(missing, "RECOVERY_REDIRECT_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
