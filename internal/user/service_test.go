package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
)

type mockUserRepo struct {
	findByIDFn     func(ctx context.Context, id int64) (*model.User, error)
	updateStatusFn func(ctx context.Context, id int64, status model.Status) error

	updated []model.Status
}

func (m *mockUserRepo) FindActiveByEmailAndProvider(context.Context, string, model.ProviderName) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(context.Context, *model.User) (int64, error) {
	return 0, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	m.updated = append(m.updated, status)
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func userWithStatus(status model.Status) func(context.Context, int64) (*model.User, error) {
	return func(_ context.Context, id int64) (*model.User, error) {
		return &model.User{ID: id, Email: "bob@x.com", ProviderName: model.ProviderGitHub, Status: status}, nil
	}
}

func TestService_Deactivate(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: userWithStatus(model.StatusActive)}
	svc := NewService(repo)

	if err := svc.Deactivate(context.Background(), 10); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if len(repo.updated) != 1 || repo.updated[0] != model.StatusInactive {
		t.Errorf("updated = %v, want [INACTIVE]", repo.updated)
	}
}

func TestService_Deactivate_AlreadyInactive_NoWrite(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: userWithStatus(model.StatusInactive)}
	svc := NewService(repo)

	if err := svc.Deactivate(context.Background(), 10); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if len(repo.updated) != 0 {
		t.Errorf("expected no status update, got %v", repo.updated)
	}
}

func TestService_Deactivate_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	err := svc.Deactivate(context.Background(), 404)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}

func TestService_Activate(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: userWithStatus(model.StatusInactive)}
	svc := NewService(repo)

	if err := svc.Activate(context.Background(), 10); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if len(repo.updated) != 1 || repo.updated[0] != model.StatusActive {
		t.Errorf("updated = %v, want [ACTIVE]", repo.updated)
	}
}

func TestService_Activate_DuplicateActiveUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: userWithStatus(model.StatusInactive),
		updateStatusFn: func(context.Context, int64, model.Status) error {
			return repository.ErrDuplicateActiveUser
		},
	}
	svc := NewService(repo)

	err := svc.Activate(context.Background(), 10)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Get_StorageError(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, int64) (*model.User, error) {
			return nil, &model.StorageError{Op: "user.find_by_id", Err: errors.New("timeout")}
		},
	}
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), 1)
	if !model.IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestService_Deactivate_RowVanished(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: userWithStatus(model.StatusActive),
		updateStatusFn: func(context.Context, int64, model.Status) error {
			return repository.ErrNotFound
		},
	}
	svc := NewService(repo)

	err := svc.Deactivate(context.Background(), 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}
