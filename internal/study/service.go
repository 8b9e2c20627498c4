// Package study はカレンダーを束ねるスタディの作成と取得を提供する。
package study

import (
	"context"
	"log/slog"

	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
	"github.com/hitoshi/studyplatform/internal/security"
	"github.com/hitoshi/studyplatform/internal/validation"
)

// CreateRequest はスタディ作成のリクエスト。
type CreateRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// Service はスタディのサービス層。
type Service struct {
	studyRepo repository.StudyRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(studyRepo repository.StudyRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{studyRepo: studyRepo, sanitizer: sanitizer}
}

// Create はスタディを作成する。
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Study, error) {
	req.Title = s.sanitizer.SanitizeText(req.Title)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	st := &model.Study{Title: req.Title, Status: model.StatusActive}
	if err := s.studyRepo.Create(ctx, st); err != nil {
		return nil, err
	}

	slog.Info("study created", slog.Int64("study_id", st.ID))
	return st, nil
}

// Get は指定スタディを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Study, error) {
	st, err := s.studyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, model.NewStudyNotFoundError(id)
	}
	return st, nil
}
