// Package calendar はスタディの予定（カレンダー）と参加者の管理を提供する。
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/studyplatform/internal/metrics"
	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
	"github.com/hitoshi/studyplatform/internal/security"
	"github.com/hitoshi/studyplatform/internal/validation"
)

// Request はカレンダーの作成・更新リクエスト。
type Request struct {
	Title     string    `json:"title" validate:"required,max=100"`
	Contents  string    `json:"contents" validate:"max=2000"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required,gtefield=StartTime"`
	Attends   []int64   `json:"attends" validate:"dive,gt=0"`
	Alarm     bool      `json:"alarm"`
	Online    bool      `json:"online"`
}

func (r Request) fields() model.CalendarFields {
	return model.CalendarFields{
		Title:     r.Title,
		Contents:  r.Contents,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Alarm:     r.Alarm,
		Online:    r.Online,
	}
}

// Service はカレンダーのサービス層。
type Service struct {
	calendarRepo repository.CalendarRepository
	studyRepo    repository.StudyRepository
	sanitizer    security.TextSanitizerService
	metrics      metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。collectorがnilの場合は記録しない。
func NewService(
	calendarRepo repository.CalendarRepository,
	studyRepo repository.StudyRepository,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		calendarRepo: calendarRepo,
		studyRepo:    studyRepo,
		sanitizer:    sanitizer,
		metrics:      collector,
	}
}

// Create は有効なスタディに予定を作成する。作成者はuserID。
func (s *Service) Create(ctx context.Context, userID, studyID int64, req Request) (*model.CalendarResponse, error) {
	req, attendees, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	st, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, model.NewStudyNotFoundError(studyID)
	}
	if st.Status != model.StatusActive {
		return nil, model.NewStudyInactiveError(studyID)
	}

	c := model.NewCalendar(studyID, userID, req.fields())
	if err := s.calendarRepo.Create(ctx, c, attendees); err != nil {
		return nil, attendeeError(err)
	}

	s.metrics.RecordCalendarOperation("create")
	slog.Info("calendar created",
		slog.Int64("calendar_id", c.ID),
		slog.Int64("study_id", studyID),
		slog.Int64("user_id", userID),
	)
	return c.Result(attendees), nil
}

// Get は参加者を含む予定を返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.CalendarResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	attendees, err := s.calendarRepo.ListAttendees(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Result(attendees), nil
}

// ListByStudy はスタディの予定を開始日順に返す。
// includeInactiveがfalseの場合は無効化された予定を含めない。
func (s *Service) ListByStudy(ctx context.Context, studyID int64, includeInactive bool) ([]*model.CalendarResponse, error) {
	st, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, model.NewStudyNotFoundError(studyID)
	}

	calendars, err := s.calendarRepo.ListByStudy(ctx, studyID, includeInactive)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(calendars))
	for i, c := range calendars {
		ids[i] = c.ID
	}
	attendees, err := s.calendarRepo.ListAttendeesByCalendars(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*model.CalendarResponse, len(calendars))
	for i, c := range calendars {
		result[i] = c.Result(attendees[c.ID])
	}
	return result, nil
}

// Update は予定の内容と参加者を置き換える。作成者のみ更新できる。
func (s *Service) Update(ctx context.Context, userID, id int64, req Request) (*model.CalendarResponse, error) {
	req, attendees, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	c, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	c.Update(req.fields())
	if err := s.calendarRepo.Update(ctx, c, attendees); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewCalendarNotFoundError(id)
		}
		return nil, attendeeError(err)
	}

	s.metrics.RecordCalendarOperation("update")
	slog.Info("calendar updated", slog.Int64("calendar_id", id), slog.Int64("user_id", userID))
	return c.Result(attendees), nil
}

// Deactivate は予定を無効化する（論理削除）。作成者のみ実行できる。
func (s *Service) Deactivate(ctx context.Context, userID, id int64) error {
	c, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	c.Deactivate()
	return s.saveStatus(ctx, c, userID, "deactivate")
}

// Activate は無効化された予定を再有効化する。作成者のみ実行できる。
func (s *Service) Activate(ctx context.Context, userID, id int64) error {
	c, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	c.Activate()
	return s.saveStatus(ctx, c, userID, "activate")
}

func (s *Service) saveStatus(ctx context.Context, c *model.Calendar, userID int64, op string) error {
	if err := s.calendarRepo.UpdateStatus(ctx, c.ID, c.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCalendarNotFoundError(c.ID)
		}
		return err
	}

	s.metrics.RecordCalendarOperation(op)
	slog.Info("calendar status changed",
		slog.Int64("calendar_id", c.ID),
		slog.Int64("user_id", userID),
		slog.String("status", string(c.Status)),
	)
	return nil
}

// prepare はテキストをサニタイズしてから検証し、参加者IDを正規化する。
func (s *Service) prepare(req Request) (Request, []int64, error) {
	req.Title = s.sanitizer.SanitizeText(req.Title)
	req.Contents = s.sanitizer.SanitizeText(req.Contents)
	if err := validation.Struct(req); err != nil {
		return req, nil, err
	}
	return req, normalizeAttendees(req.Attends), nil
}

func (s *Service) find(ctx context.Context, id int64) (*model.Calendar, error) {
	c, err := s.calendarRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.NewCalendarNotFoundError(id)
	}
	return c, nil
}

func (s *Service) findOwned(ctx context.Context, userID, id int64) (*model.Calendar, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, model.NewCalendarForbiddenError()
	}
	return c, nil
}

// attendeeError は存在しない参加者の指定を入力エラーに変換する。
func attendeeError(err error) error {
	if errors.Is(err, repository.ErrUnknownAttendee) {
		return model.NewValidationError("attendsに存在しないユーザーが含まれています")
	}
	return err
}

// normalizeAttendees は重複を除いて昇順に並べる。
func normalizeAttendees(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
