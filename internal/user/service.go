// Package user はユーザーライフサイクルの調整ロジックを提供する。
// ローカルストアと外部IDプロバイダーの2つの協調先を、作成・ログイン・削除の
// 各フローで整合させる。
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/nvc-api/internal/identity"
	"github.com/hitoshi/nvc-api/internal/model"
	"github.com/hitoshi/nvc-api/internal/repository"
)

// IdentityProvider は外部IDプロバイダーへの操作インターフェース。
// 実装はinternal/identityのClient。
type IdentityProvider interface {
	// SignUp はプロバイダー側にアカウントを作成し、プロバイダー採番のIDを返す。
	SignUp(ctx context.Context, email, password string) (string, error)
	// Login はセッションを作成し、セッショントークンを返す。
	Login(ctx context.Context, email, password string) (string, error)
	// DeleteAccount はトークン所有者のアカウントを削除する。
	DeleteAccount(ctx context.Context, token string) error
	// DeleteAccountByID はサーバー権限で指定アカウントを削除する（補償用）。
	DeleteAccountByID(ctx context.Context, accountID string) error
	// SendVerification はトークン所有者宛に確認メールを送信させる。
	SendVerification(ctx context.Context, token string) error
	// ConfirmVerification はメールアドレスを確認済みにする。
	ConfirmVerification(ctx context.Context, token, secret string) error
	// SendRecovery はパスワードリカバリーメールを送信させる。
	SendRecovery(ctx context.Context, email string) error
}

// PasswordHasher はパスワードの一方向ハッシュインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// EventRecorder はユーザー操作のメトリクス記録インターフェース。
type EventRecorder interface {
	RecordSignup()
	RecordLogin(success bool)
	RecordUserDeleted()
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	NationalID  string
}

// LoginResult はログイン成功時のローカルプロフィールとセッショントークン。
// トークンはプロバイダーが発行したものであり、ローカルには保存しない。
type LoginResult struct {
	User  *model.User
	Token string
}

// Service はユーザーライフサイクルの調整サービス。
// 状態は持たず、各操作は1リクエストのスコープで完結する。
type Service struct {
	userRepo repository.UserRepository
	provider IdentityProvider
	hasher   PasswordHasher
	events   EventRecorder
}

// NewService はServiceを生成する。eventsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	provider IdentityProvider,
	hasher PasswordHasher,
	events EventRecorder,
) *Service {
	return &Service{
		userRepo: userRepo,
		provider: provider,
		hasher:   hasher,
		events:   events,
	}
}

// Register はユーザーを登録する。
//
// 順序はプロバイダー先行: プロバイダー側のアカウント作成が成功してから
// ローカルレコードを作成する。ローカルにだけ存在する実体のないユーザー
// （リモート欠損）よりも、リトライや突き合わせで修復可能な「リモートのみ存在」
// の状態を選ぶ。ローカル書き込みが失敗した場合はプロバイダー側のアカウントを
// 補償削除する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	// 1. ローカルの重複チェック。重複時はプロバイダーを呼ばずに終了する。
	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		slog.Error("failed to look up existing user",
			slog.String("email", input.Email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}
	if existing != nil {
		return nil, model.NewUserAlreadyExistsError(input.Email)
	}

	// 2. プロバイダー側にアカウントを作成
	accountID, err := s.provider.SignUp(ctx, input.Email, input.Password)
	if err != nil {
		if identity.IsConflict(err) {
			return nil, model.NewProviderUserExistsError()
		}
		return nil, model.NewProviderError(providerMessage(err))
	}

	// 3. パスワードをハッシュ化してローカルレコードを作成
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		s.compensateSignUp(ctx, accountID)
		return nil, model.NewStorageError()
	}

	user := &model.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		PhoneNumber:  input.PhoneNumber,
		NationalID:   input.NationalID,
		IsActive:     true,
		IsVerified:   false,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.compensateSignUp(ctx, accountID)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewUserAlreadyExistsError(input.Email)
		}
		slog.Error("failed to insert user",
			slog.String("email", input.Email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}

	s.recordSignup()
	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login はIDプロバイダーで認証し、ローカルプロフィールとセッショントークンを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	token, err := s.provider.Login(ctx, email, password)
	if err != nil {
		if identity.IsUnauthorized(err) {
			s.recordLogin(false)
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, model.NewProviderError(providerMessage(err))
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to find user after login",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}
	if user == nil {
		// プロバイダー側にのみ存在する: ローカルとの状態乖離
		slog.Warn("login succeeded on provider but user missing locally",
			slog.String("email", email),
		)
		return nil, model.NewUserNotFoundError()
	}

	s.recordLogin(true)
	return &LoginResult{User: user, Token: token}, nil
}

// Delete はユーザーを削除し、削除直前のレコードのスナップショットを返す。
//
// プロバイダー側の削除が成功するまでローカルレコードには触れない。
// リモートアカウントが残ったままローカルだけ消えるゴースト削除を防ぐ。
func (s *Service) Delete(ctx context.Context, userID int64, token string) (*model.User, error) {
	if err := s.provider.DeleteAccount(ctx, token); err != nil {
		return nil, model.NewProviderError(providerMessage(err))
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		slog.Error("failed to find user for deletion",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		slog.Error("failed to delete user",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}

	s.recordUserDeleted()
	slog.Info("user deleted",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// SendVerification はセッション所有者宛の確認メール送信をプロバイダーに委譲する。
func (s *Service) SendVerification(ctx context.Context, token string) error {
	if err := s.provider.SendVerification(ctx, token); err != nil {
		return model.NewProviderError(providerMessage(err))
	}
	return nil
}

// ConfirmVerification は確認メール内のシークレットによるメール確認をプロバイダーに委譲する。
func (s *Service) ConfirmVerification(ctx context.Context, token, secret string) error {
	if err := s.provider.ConfirmVerification(ctx, token, secret); err != nil {
		return model.NewProviderError(providerMessage(err))
	}
	return nil
}

// SendRecovery はパスワードリカバリーメール送信をプロバイダーに委譲する。
func (s *Service) SendRecovery(ctx context.Context, email string) error {
	if err := s.provider.SendRecovery(ctx, email); err != nil {
		return model.NewProviderError(providerMessage(err))
	}
	return nil
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		return nil, model.NewStorageError()
	}
	return users, nil
}

// GetByEmail は指定メールアドレスのユーザーを返す。
func (s *Service) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to find user by email",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageError()
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// compensateSignUp はローカル書き込み失敗時にプロバイダー側のアカウントを削除する。
// ベストエフォートであり、失敗した場合はログに残して手動の突き合わせに委ねる。
func (s *Service) compensateSignUp(ctx context.Context, accountID string) {
	if err := s.provider.DeleteAccountByID(ctx, accountID); err != nil {
		slog.Error("failed to compensate provider signup",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) recordSignup() {
	if s.events != nil {
		s.events.RecordSignup()
	}
}

func (s *Service) recordLogin(success bool) {
	if s.events != nil {
		s.events.RecordLogin(success)
	}
}

func (s *Service) recordUserDeleted() {
	if s.events != nil {
		s.events.RecordUserDeleted()
	}
}

// providerMessage はプロバイダーエラーから診断用メッセージを取り出す。
func providerMessage(err error) string {
	var pe *identity.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
