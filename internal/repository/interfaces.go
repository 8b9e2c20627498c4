// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/studyplatform/internal/model"
)

var (
	// ErrNotFound は更新対象の行が存在しない場合に返される。
	ErrNotFound = errors.New("repository: record not found")

	// ErrDuplicateActiveUser は同一(email, provider_name)の有効ユーザーが既に存在する場合に返される。
	// 同時ログインで先行した側がユーザーを作成済みであることを示す。
	ErrDuplicateActiveUser = errors.New("repository: active user already exists for email and provider")

	// ErrUnknownAttendee は参加者に存在しないユーザーIDが含まれる場合に返される。
	ErrUnknownAttendee = errors.New("repository: attendee user does not exist")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindActiveByEmailAndProvider は有効ユーザーをemailとプロバイダーで検索する。
	// 見つからない場合はnilを返す。
	FindActiveByEmailAndProvider(ctx context.Context, email string, provider model.ProviderName) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDを返す。
	// 有効ユーザーが重複する場合はErrDuplicateActiveUserを返す。
	Create(ctx context.Context, user *model.User) (int64, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// UpdateStatus はユーザーの状態を更新する。
	UpdateStatus(ctx context.Context, id int64, status model.Status) error
}

// StudyRepository はスタディデータの永続化インターフェース。
type StudyRepository interface {
	// Create はスタディを作成し、ID・作成日時を設定する。
	Create(ctx context.Context, study *model.Study) error

	// FindByID は指定IDのスタディを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Study, error)
}

// CalendarRepository はカレンダーと参加者の永続化インターフェース。
type CalendarRepository interface {
	// Create はカレンダーと参加者を同一トランザクションで作成する。
	// 参加者に存在しないユーザーが含まれる場合はErrUnknownAttendeeを返し、何も作成しない。
	Create(ctx context.Context, calendar *model.Calendar, attendees []int64) error

	// FindByID は指定IDのカレンダーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Calendar, error)

	// ListAttendees はカレンダーの参加者IDを昇順で返す。
	ListAttendees(ctx context.Context, calendarID int64) ([]int64, error)

	// ListAttendeesByCalendars は複数カレンダーの参加者IDをまとめて取得する。
	ListAttendeesByCalendars(ctx context.Context, calendarIDs []int64) (map[int64][]int64, error)

	// ListByStudy はスタディのカレンダーをstart_date昇順で返す。
	// includeInactiveがfalseの場合は有効なカレンダーのみ返す。
	ListByStudy(ctx context.Context, studyID int64, includeInactive bool) ([]*model.Calendar, error)

	// Update は編集可能な項目を更新し、参加者を置き換える。
	// 参加者に存在しないユーザーが含まれる場合はErrUnknownAttendeeを返し、何も変更しない。
	Update(ctx context.Context, calendar *model.Calendar, attendees []int64) error

	// UpdateStatus はカレンダーの状態を更新する。
	UpdateStatus(ctx context.Context, id int64, status model.Status) error
}
