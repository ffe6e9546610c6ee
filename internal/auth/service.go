// Package auth はパスワード認証、セッショントークン、認可ガードを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/messagely/internal/model"
	"github.com/hitoshi/messagely/internal/repository"
)

const (
	maxUsernameLength = 64
	// bcryptは72バイトを超える入力を扱えない
	maxPasswordBytes = 72
)

// RegisterInput はユーザー登録の入力値。
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   *PasswordHasher
	tokens   *TokenManager
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Register はユーザーを登録する。
// パスワードはハッシュ化して保存し、join_atとlast_login_atを現在時刻に設定する。
// ユーザー名が既に存在する場合はUSERNAME_TAKENを返し、既存ユーザーは変更しない。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.UserDetail, error) {
	if in.Username == "" || in.Password == "" {
		return nil, model.NewValidationError("username と password は必須です")
	}
	if len(in.Username) > maxUsernameLength {
		return nil, model.NewValidationError(fmt.Sprintf("username は%d文字以内で指定してください", maxUsernameLength))
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, model.NewValidationError(fmt.Sprintf("password は%dバイト以内で指定してください", maxPasswordBytes))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		JoinAt:       now,
		LastLoginAt:  &now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewUsernameTakenError(in.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("username", user.Username))

	detail := user.Detail()
	return &detail, nil
}

// Authenticate はユーザー名とパスワードを照合する。
// ユーザーが存在しない場合もダミーハッシュとの照合を行い、応答時間の差を小さくする。
func (s *Service) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, model.NewValidationError("username と password は必須です")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		_, _ = s.hasher.Verify(s.dummy(), password)
		return false, model.NewUserNotFoundError(username)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// UpdateLoginTimestamp はlast_login_atを現在時刻に更新する。
func (s *Service) UpdateLoginTimestamp(ctx context.Context, username string) error {
	err := s.userRepo.UpdateLastLogin(ctx, username, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError(username)
	}
	if err != nil {
		return fmt.Errorf("failed to update login timestamp: %w", err)
	}
	return nil
}

// IssueToken はusernameを埋め込んだセッショントークンを発行する。
func (s *Service) IssueToken(username string) (string, error) {
	return s.tokens.Issue(username)
}

// VerifyToken はセッショントークンを検証する。
func (s *Service) VerifyToken(token string) (*model.Identity, error) {
	return s.tokens.Verify(token)
}

// Login は認証、最終ログイン日時の更新、トークン発行を順に行う。
// 認証と更新は別々の操作であり、アトミックではない。
// ユーザー不在とパスワード不一致はどちらもINVALID_CREDENTIALSとして返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	ok, err := s.Authenticate(ctx, username, password)
	if model.IsKind(err, model.KindNotFound) {
		return "", model.NewInvalidCredentialsError()
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.NewInvalidCredentialsError()
	}

	if err := s.UpdateLoginTimestamp(ctx, username); err != nil {
		return "", err
	}

	token, err := s.IssueToken(username)
	if err != nil {
		return "", err
	}

	slog.Info("user logged in", slog.String("username", username))
	return token, nil
}

// dummy はユーザー不在時の照合に使うハッシュを返す。初回のみ生成する。
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("messagely-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
