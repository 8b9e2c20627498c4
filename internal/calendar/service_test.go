package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
	"github.com/hitoshi/studyplatform/internal/security"
)

// --- モック定義 ---

type mockCalendarRepo struct {
	createFn        func(ctx context.Context, c *model.Calendar, attendees []int64) error
	findByIDFn      func(ctx context.Context, id int64) (*model.Calendar, error)
	listAttendeesFn func(ctx context.Context, id int64) ([]int64, error)
	listByStudyFn   func(ctx context.Context, studyID int64, includeInactive bool) ([]*model.Calendar, error)
	attendeesByFn   func(ctx context.Context, ids []int64) (map[int64][]int64, error)
	updateFn        func(ctx context.Context, c *model.Calendar, attendees []int64) error
	updateStatusFn  func(ctx context.Context, id int64, status model.Status) error

	writes int
}

func (m *mockCalendarRepo) Create(ctx context.Context, c *model.Calendar, attendees []int64) error {
	m.writes++
	if m.createFn != nil {
		return m.createFn(ctx, c, attendees)
	}
	c.ID = 1
	return nil
}

func (m *mockCalendarRepo) FindByID(ctx context.Context, id int64) (*model.Calendar, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCalendarRepo) ListAttendees(ctx context.Context, id int64) ([]int64, error) {
	if m.listAttendeesFn != nil {
		return m.listAttendeesFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCalendarRepo) ListAttendeesByCalendars(ctx context.Context, ids []int64) (map[int64][]int64, error) {
	if m.attendeesByFn != nil {
		return m.attendeesByFn(ctx, ids)
	}
	return map[int64][]int64{}, nil
}

func (m *mockCalendarRepo) ListByStudy(ctx context.Context, studyID int64, includeInactive bool) ([]*model.Calendar, error) {
	if m.listByStudyFn != nil {
		return m.listByStudyFn(ctx, studyID, includeInactive)
	}
	return nil, nil
}

func (m *mockCalendarRepo) Update(ctx context.Context, c *model.Calendar, attendees []int64) error {
	m.writes++
	if m.updateFn != nil {
		return m.updateFn(ctx, c, attendees)
	}
	return nil
}

func (m *mockCalendarRepo) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	m.writes++
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

type mockStudyRepo struct {
	study *model.Study
	err   error
}

func (m *mockStudyRepo) Create(context.Context, *model.Study) error { return nil }

func (m *mockStudyRepo) FindByID(context.Context, int64) (*model.Study, error) {
	return m.study, m.err
}

func activeStudy() *mockStudyRepo {
	return &mockStudyRepo{study: &model.Study{ID: 3, Title: "Go", Status: model.StatusActive}}
}

var day = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func validRequest() Request {
	return Request{
		Title:     "Kickoff",
		Contents:  "intro",
		StartDate: day,
		EndDate:   day,
		StartTime: day.Add(19 * time.Hour),
		EndTime:   day.Add(21 * time.Hour),
		Attends:   []int64{8, 2, 8},
		Online:    true,
	}
}

func ownedCalendar(owner int64) func(context.Context, int64) (*model.Calendar, error) {
	return func(_ context.Context, id int64) (*model.Calendar, error) {
		c := model.NewCalendar(3, owner, validRequest().fields())
		c.ID = id
		return c, nil
	}
}

func newService(cals *mockCalendarRepo, studies *mockStudyRepo) *Service {
	return NewService(cals, studies, security.NewTextSanitizer(), nil)
}

// --- テスト ---

func TestService_Create(t *testing.T) {
	var saved *model.Calendar
	var savedAttendees []int64
	cals := &mockCalendarRepo{createFn: func(_ context.Context, c *model.Calendar, attendees []int64) error {
		saved = c
		savedAttendees = attendees
		c.ID = 21
		return nil
	}}
	svc := newService(cals, activeStudy())

	req := validRequest()
	req.Title = "<b>Kickoff</b>"
	resp, err := svc.Create(context.Background(), 5, 3, req)
	require.NoError(t, err)

	assert.Equal(t, int64(21), resp.ID)
	assert.Equal(t, int64(5), resp.UserID)
	assert.Equal(t, int64(3), resp.StudyID)
	assert.Equal(t, "Kickoff", resp.Title)
	assert.Equal(t, model.StatusActive, resp.Status)
	assert.Equal(t, []int64{2, 8}, resp.Attends)
	assert.Equal(t, []int64{2, 8}, savedAttendees)
	assert.Equal(t, "Kickoff", saved.Title)
}

func TestService_Create_StudyChecks(t *testing.T) {
	tests := []struct {
		name     string
		studies  *mockStudyRepo
		wantCode string
	}{
		{"study missing", &mockStudyRepo{}, model.ErrCodeStudyNotFound},
		{"study inactive", &mockStudyRepo{study: &model.Study{ID: 3, Status: model.StatusInactive}}, model.ErrCodeStudyInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cals := &mockCalendarRepo{}
			svc := newService(cals, tt.studies)

			_, err := svc.Create(context.Background(), 5, 3, validRequest())
			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Zero(t, cals.writes)
		})
	}
}

func TestService_Create_Validation(t *testing.T) {
	mutate := map[string]func(r *Request){
		"empty title":        func(r *Request) { r.Title = "" },
		"markup-only title":  func(r *Request) { r.Title = "<br>" },
		"long title":         func(r *Request) { r.Title = strings.Repeat("a", 101) },
		"long contents":      func(r *Request) { r.Contents = strings.Repeat("a", 2001) },
		"end date before":    func(r *Request) { r.EndDate = r.StartDate.Add(-24 * time.Hour) },
		"end time before":    func(r *Request) { r.EndTime = r.StartTime.Add(-time.Minute) },
		"missing start date": func(r *Request) { r.StartDate = time.Time{} },
		"bad attendee":       func(r *Request) { r.Attends = []int64{-1} },
	}

	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			cals := &mockCalendarRepo{}
			svc := newService(cals, activeStudy())

			req := validRequest()
			fn(&req)
			_, err := svc.Create(context.Background(), 5, 3, req)

			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, model.ErrCodeValidation, apiErr.Code)
			assert.Zero(t, cals.writes)
		})
	}
}

func TestService_Get(t *testing.T) {
	cals := &mockCalendarRepo{
		findByIDFn:      ownedCalendar(5),
		listAttendeesFn: func(context.Context, int64) ([]int64, error) { return []int64{9, 4}, nil },
	}
	svc := newService(cals, activeStudy())

	resp, err := svc.Get(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, int64(21), resp.ID)
	assert.Equal(t, []int64{4, 9}, resp.Attends)
}

func TestService_Get_NotFound(t *testing.T) {
	svc := newService(&mockCalendarRepo{}, activeStudy())

	_, err := svc.Get(context.Background(), 404)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeCalendarNotFound, apiErr.Code)
}

func TestService_ListByStudy(t *testing.T) {
	var gotInclude bool
	cals := &mockCalendarRepo{
		listByStudyFn: func(_ context.Context, _ int64, includeInactive bool) ([]*model.Calendar, error) {
			gotInclude = includeInactive
			a := model.NewCalendar(3, 5, validRequest().fields())
			a.ID = 1
			b := model.NewCalendar(3, 6, validRequest().fields())
			b.ID = 2
			b.Deactivate()
			return []*model.Calendar{a, b}, nil
		},
		attendeesByFn: func(_ context.Context, ids []int64) (map[int64][]int64, error) {
			assert.Equal(t, []int64{1, 2}, ids)
			return map[int64][]int64{1: {5, 7}}, nil
		},
	}
	svc := newService(cals, activeStudy())

	list, err := svc.ListByStudy(context.Background(), 3, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, gotInclude)
	assert.Equal(t, []int64{5, 7}, list[0].Attends)
	assert.Equal(t, []int64{}, list[1].Attends)
	assert.Equal(t, model.StatusInactive, list[1].Status)
}

func TestService_ListByStudy_StudyNotFound(t *testing.T) {
	svc := newService(&mockCalendarRepo{}, &mockStudyRepo{})

	_, err := svc.ListByStudy(context.Background(), 3, false)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeStudyNotFound, apiErr.Code)
}

func TestService_Update(t *testing.T) {
	var updated *model.Calendar
	var updatedAttendees []int64
	cals := &mockCalendarRepo{
		findByIDFn: ownedCalendar(5),
		updateFn: func(_ context.Context, c *model.Calendar, attendees []int64) error {
			updated = c
			updatedAttendees = attendees
			return nil
		},
	}
	svc := newService(cals, activeStudy())

	req := validRequest()
	req.Title = "Moved"
	req.Online = false
	req.Alarm = true
	req.Attends = []int64{11}

	resp, err := svc.Update(context.Background(), 5, 21, req)
	require.NoError(t, err)

	assert.Equal(t, "Moved", updated.Title)
	assert.True(t, updated.Alarm)
	assert.False(t, updated.Online)
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.Equal(t, int64(3), updated.StudyID)
	assert.Equal(t, []int64{11}, updatedAttendees)
	assert.Equal(t, []int64{11}, resp.Attends)
}

func TestService_UnknownAttendee_ReturnsValidationError(t *testing.T) {
	cals := &mockCalendarRepo{
		findByIDFn: ownedCalendar(5),
		createFn: func(context.Context, *model.Calendar, []int64) error {
			return repository.ErrUnknownAttendee
		},
		updateFn: func(context.Context, *model.Calendar, []int64) error {
			return repository.ErrUnknownAttendee
		},
	}
	svc := newService(cals, activeStudy())

	_, createErr := svc.Create(context.Background(), 5, 3, validRequest())
	_, updateErr := svc.Update(context.Background(), 5, 21, validRequest())

	for name, err := range map[string]error{"create": createErr, "update": updateErr} {
		var apiErr *model.APIError
		require.True(t, errors.As(err, &apiErr), "%s: got %v", name, err)
		assert.Equal(t, model.ErrCodeValidation, apiErr.Code, name)
		assert.False(t, model.IsStorageError(err), name)
	}
}

func TestService_StorageFailure_PassesThrough(t *testing.T) {
	storageErr := &model.StorageError{Op: "calendar.create", Err: errors.New("connection reset")}
	cals := &mockCalendarRepo{createFn: func(context.Context, *model.Calendar, []int64) error {
		return storageErr
	}}
	svc := newService(cals, activeStudy())

	_, err := svc.Create(context.Background(), 5, 3, validRequest())
	assert.True(t, model.IsStorageError(err), "got %v", err)
}

func TestService_Update_NotAuthor(t *testing.T) {
	cals := &mockCalendarRepo{findByIDFn: ownedCalendar(5)}
	svc := newService(cals, activeStudy())

	_, err := svc.Update(context.Background(), 6, 21, validRequest())
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeCalendarForbidden, apiErr.Code)
	assert.Zero(t, cals.writes)
}

func TestService_DeactivateAndActivate(t *testing.T) {
	var statuses []model.Status
	cals := &mockCalendarRepo{
		findByIDFn: ownedCalendar(5),
		updateStatusFn: func(_ context.Context, _ int64, status model.Status) error {
			statuses = append(statuses, status)
			return nil
		},
	}
	svc := newService(cals, activeStudy())

	require.NoError(t, svc.Deactivate(context.Background(), 5, 21))
	require.NoError(t, svc.Activate(context.Background(), 5, 21))
	assert.Equal(t, []model.Status{model.StatusInactive, model.StatusActive}, statuses)

	err := svc.Deactivate(context.Background(), 7, 21)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeCalendarForbidden, apiErr.Code)
}

func TestService_Deactivate_RowVanished(t *testing.T) {
	cals := &mockCalendarRepo{
		findByIDFn: ownedCalendar(5),
		updateStatusFn: func(context.Context, int64, model.Status) error {
			return repository.ErrNotFound
		},
	}
	svc := newService(cals, activeStudy())

	err := svc.Deactivate(context.Background(), 5, 21)
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrCodeCalendarNotFound, apiErr.Code)
}

func TestNormalizeAttendees(t *testing.T) {
	assert.Equal(t, []int64{}, normalizeAttendees(nil))
	assert.Equal(t, []int64{1, 3, 5}, normalizeAttendees([]int64{5, 1, 3, 1, 5}))
}
