// Package identity は外部IDプロバイダーのRESTクライアントを提供する。
// 認証情報の本体はプロバイダー側が管理し、本システムはアカウント作成・
// セッション発行・削除・確認メール・リカバリーの各操作を委譲する。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTimeout はプロバイダー呼び出しのデフォルトタイムアウト。
// タイムアウト超過はUpstreamErrorとして扱われる。
const defaultTimeout = 10 * time.Second

// Config はIDプロバイダークライアントの設定。
// プロセス起動時に1回だけ渡し、リクエストごとには変更しない。
type Config struct {
	Endpoint  string // 例: "https://id.example.com/v1"
	ProjectID string
	APIKey    string // サーバーサイドAPIキー

	// 確認メール・リカバリーメール内のリンク先URL
	VerificationRedirectURL string
	RecoveryRedirectURL     string

	// 各呼び出しのタイムアウト。ゼロの場合はdefaultTimeoutを使用する。
	Timeout time.Duration
}

// Error はプロバイダーが報告した失敗を表す。
// ステータスコードとプロバイダーからの生メッセージを保持する。
type Error struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// IsConflict はアカウント重複（409）によるエラーかを判定する。
func IsConflict(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.StatusCode == http.StatusConflict
}

// IsUnauthorized は認証情報不正（401）によるエラーかを判定する。
func IsUnauthorized(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized
}

// CallRecorder はプロバイダー呼び出しのメトリクス記録インターフェース。
type CallRecorder interface {
	RecordProviderCall(op string, statusCode int, duration time.Duration)
}

// Client はIDプロバイダーのREST APIクライアント。
type Client struct {
	config   Config
	http     *http.Client
	recorder CallRecorder
}

// NewClient はClientを生成する。recorderはnilでもよい。
func NewClient(config Config, recorder CallRecorder) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		config:   config,
		http:     &http.Client{Timeout: timeout},
		recorder: recorder,
	}
}

// signUpResponse はアカウント作成エンドポイントのレスポンス。
type signUpResponse struct {
	ID string `json:"id"`
}

// sessionResponse はセッション作成エンドポイントのレスポンス。
type sessionResponse struct {
	Token string `json:"token"`
}

// providerErrorBody はプロバイダーのエラーレスポンス。
type providerErrorBody struct {
	Message string `json:"message"`
}

// SignUp はプロバイダー側にアカウントを作成し、プロバイダー採番のアカウントIDを返す。
// アカウントが既に存在する場合は409のErrorを返す。
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	var resp signUpResponse
	err := c.do(ctx, "signup", http.MethodPost, "/accounts", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("empty account ID in signup response")
	}

	return resp.ID, nil
}

// Login はメールアドレスとパスワードでセッションを作成し、セッショントークンを返す。
// 認証情報が不正な場合は401のErrorを返す。
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp sessionResponse
	err := c.do(ctx, "login", http.MethodPost, "/sessions", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.Token == "" {
		return "", fmt.Errorf("empty token in session response")
	}

	return resp.Token, nil
}

// DeleteAccount はセッショントークンの所有者のアカウントを削除する。
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	return c.do(ctx, "delete_account", http.MethodDelete, "/account", token, nil, nil)
}

// DeleteAccountByID はサーバーAPIキーの権限で指定アカウントを削除する。
// ローカルDBへの書き込み失敗時の補償処理で使用する。
func (c *Client) DeleteAccountByID(ctx context.Context, accountID string) error {
	return c.do(ctx, "delete_account_by_id", http.MethodDelete, "/accounts/"+accountID, "", nil, nil)
}

// SendVerification はセッションの所有者宛に確認メールを送信させる。
func (c *Client) SendVerification(ctx context.Context, token string) error {
	return c.do(ctx, "send_verification", http.MethodPost, "/verification", token, map[string]string{
		"url": c.config.VerificationRedirectURL,
	}, nil)
}

// ConfirmVerification は確認メール内のシークレットでメールアドレスを確認済みにする。
func (c *Client) ConfirmVerification(ctx context.Context, token, secret string) error {
	return c.do(ctx, "confirm_verification", http.MethodPut, "/verification", token, map[string]string{
		"secret": secret,
	}, nil)
}

// SendRecovery は指定メールアドレス宛にパスワードリカバリーメールを送信させる。
func (c *Client) SendRecovery(ctx context.Context, email string) error {
	return c.do(ctx, "send_recovery", http.MethodPost, "/recovery", "", map[string]string{
		"email": email,
		"url":   c.config.RecoveryRedirectURL,
	}, nil)
}

// do はプロバイダーAPIへの1リクエストを実行する。
// tokenが空でない場合はAuthorizationヘッダーにBearerトークンを設定する。
// 4xx/5xxレスポンスはErrorに変換して返す。
func (c *Client) do(ctx context.Context, op, method, path, token string, reqBody, respBody any) error {
	start := time.Now()

	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project-ID", c.config.ProjectID)
	req.Header.Set("X-API-Key", c.config.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(op, 0, time.Since(start))
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(op, resp.StatusCode, time.Since(start))
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	c.record(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    parseErrorMessage(body),
		}
	}

	if respBody != nil {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("failed to parse provider response: %w", err)
		}
	}

	return nil
}

// record はメトリクスを記録する。recorder未設定の場合は何もしない。
func (c *Client) record(op string, statusCode int, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordProviderCall(op, statusCode, duration)
	}
}

// parseErrorMessage はエラーレスポンスからメッセージを抽出する。
// JSONでない場合はボディをそのまま返す。
func parseErrorMessage(body []byte) string {
	var eb providerErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	return string(body)
}
