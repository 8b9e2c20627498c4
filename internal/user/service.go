// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
)

// Service はユーザー管理のサービス層。
// 退会は論理削除（StatusInactive）で表現し、レコードは削除しない。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Get は指定ユーザーを返す。無効化済みのユーザーも返す。
func (s *Service) Get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Deactivate はユーザーを退会状態にする。既に無効の場合は何もしない。
// 以降同じemail・プロバイダーでログインすると新しいユーザーが作成される。
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive() {
		return nil
	}

	user.Deactivate()
	if err := s.updateStatus(ctx, user); err != nil {
		return err
	}

	slog.Info("user deactivated", slog.Int64("user_id", userID))
	return nil
}

// Activate は無効化されたユーザーを再有効化する。
// 同じemail・プロバイダーの有効ユーザーが既に存在する場合は検証エラーを返す。
func (s *Service) Activate(ctx context.Context, userID int64) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsActive() {
		return nil
	}

	user.Activate()
	err = s.updateStatus(ctx, user)
	if errors.Is(err, repository.ErrDuplicateActiveUser) {
		return model.NewValidationError("同じメールアドレスの有効なユーザーが既に存在します")
	}
	if err != nil {
		return err
	}

	slog.Info("user activated", slog.Int64("user_id", userID))
	return nil
}

func (s *Service) updateStatus(ctx context.Context, user *model.User) error {
	err := s.userRepo.UpdateStatus(ctx, user.ID, user.Status)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError()
	}
	return err
}
