// Package user はユーザー情報の参照を提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/messagely/internal/model"
	"github.com/hitoshi/messagely/internal/repository"
)

// Service はユーザー参照のサービス層。
// 返却する値にパスワードハッシュは含めない。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// All は全ユーザーの公開プロフィールをユーザー名順に返す。
// ユーザーがいない場合は空のスライスを返す。
func (s *Service) All(ctx context.Context) ([]model.UserProfile, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	profiles := make([]model.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Get は指定ユーザーの詳細を返す。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, username string) (*model.UserDetail, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	detail := u.Detail()
	return &detail, nil
}
