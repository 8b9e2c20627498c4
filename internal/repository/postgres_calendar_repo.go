package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hitoshi/studyplatform/internal/model"
)

// PostgresCalendarRepo はPostgreSQLを使用したカレンダーリポジトリ。
type PostgresCalendarRepo struct {
	db *sqlx.DB
}

// NewPostgresCalendarRepo はPostgresCalendarRepoを生成する。
func NewPostgresCalendarRepo(db *sqlx.DB) *PostgresCalendarRepo {
	return &PostgresCalendarRepo{db: db}
}

const calendarColumns = `id, study_id, user_id, title, contents, start_date, end_date,
	start_time, end_time, alarm, online, status, created_at, updated_at`

// Create はカレンダーと参加者を同一トランザクションで作成する。
func (r *PostgresCalendarRepo) Create(ctx context.Context, c *model.Calendar, attendees []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return &model.StorageError{Op: "calendar.create", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if c.Status == "" {
		c.Status = model.StatusActive
	}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO calendars
			(study_id, user_id, title, contents, start_date, end_date, start_time, end_time, alarm, online, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		c.StudyID, c.UserID, c.Title, c.Contents, c.StartDate, c.EndDate,
		c.StartTime, c.EndTime, c.Alarm, c.Online, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return &model.StorageError{Op: "calendar.create", Err: fmt.Errorf("failed to insert calendar: %w", err)}
	}

	if err := insertAttendees(ctx, tx, c.ID, attendees); err != nil {
		return attendeeError("calendar.create", err)
	}

	if err := tx.Commit(); err != nil {
		return &model.StorageError{Op: "calendar.create", Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}

// FindByID は指定IDのカレンダーを取得する。見つからない場合はnilを返す。
func (r *PostgresCalendarRepo) FindByID(ctx context.Context, id int64) (*model.Calendar, error) {
	c := &model.Calendar{}
	err := r.db.GetContext(ctx, c, `SELECT `+calendarColumns+` FROM calendars WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "calendar.find_by_id", Err: err}
	}
	return c, nil
}

// ListAttendees はカレンダーの参加者IDを昇順で返す。
func (r *PostgresCalendarRepo) ListAttendees(ctx context.Context, calendarID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM calendar_attendees WHERE calendar_id = $1 ORDER BY user_id`,
		calendarID,
	)
	if err != nil {
		return nil, &model.StorageError{Op: "calendar.list_attendees", Err: err}
	}
	return ids, nil
}

type attendeeRow struct {
	CalendarID int64 `db:"calendar_id"`
	UserID     int64 `db:"user_id"`
}

// ListAttendeesByCalendars は複数カレンダーの参加者IDをカレンダーIDごとにまとめて返す。
func (r *PostgresCalendarRepo) ListAttendeesByCalendars(ctx context.Context, calendarIDs []int64) (map[int64][]int64, error) {
	result := make(map[int64][]int64, len(calendarIDs))
	if len(calendarIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT calendar_id, user_id FROM calendar_attendees
		 WHERE calendar_id IN (?) ORDER BY calendar_id, user_id`,
		calendarIDs,
	)
	if err != nil {
		return nil, &model.StorageError{Op: "calendar.list_attendees", Err: err}
	}

	var rows []attendeeRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, &model.StorageError{Op: "calendar.list_attendees", Err: err}
	}
	for _, row := range rows {
		result[row.CalendarID] = append(result[row.CalendarID], row.UserID)
	}
	return result, nil
}

// ListByStudy はスタディのカレンダーをstart_date昇順で返す。
func (r *PostgresCalendarRepo) ListByStudy(ctx context.Context, studyID int64, includeInactive bool) ([]*model.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE study_id = $1`
	args := []interface{}{studyID}
	if !includeInactive {
		query += ` AND status = $2`
		args = append(args, model.StatusActive)
	}
	query += ` ORDER BY start_date, id`

	var calendars []*model.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query, args...); err != nil {
		return nil, &model.StorageError{Op: "calendar.list_by_study", Err: err}
	}
	return calendars, nil
}

// Update は編集可能な項目を更新し、参加者を置き換える。
func (r *PostgresCalendarRepo) Update(ctx context.Context, c *model.Calendar, attendees []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return &model.StorageError{Op: "calendar.update", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`UPDATE calendars SET
			title = $1, contents = $2, start_date = $3, end_date = $4,
			start_time = $5, end_time = $6, alarm = $7, online = $8, updated_at = now()
		 WHERE id = $9
		 RETURNING updated_at`,
		c.Title, c.Contents, c.StartDate, c.EndDate,
		c.StartTime, c.EndTime, c.Alarm, c.Online, c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return &model.StorageError{Op: "calendar.update", Err: fmt.Errorf("failed to update calendar: %w", err)}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_attendees WHERE calendar_id = $1`, c.ID); err != nil {
		return &model.StorageError{Op: "calendar.update", Err: fmt.Errorf("failed to delete attendees: %w", err)}
	}
	if err := insertAttendees(ctx, tx, c.ID, attendees); err != nil {
		return attendeeError("calendar.update", err)
	}

	if err := tx.Commit(); err != nil {
		return &model.StorageError{Op: "calendar.update", Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}

// UpdateStatus はカレンダーの状態を更新する。対象が存在しない場合はErrNotFoundを返す。
func (r *PostgresCalendarRepo) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE calendars SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return &model.StorageError{Op: "calendar.update_status", Err: err}
	}
	return checkRowsAffected(result, "calendar.update_status")
}

// insertAttendees は参加者を登録する。重複IDは1件にまとめる。
func insertAttendees(ctx context.Context, tx *sqlx.Tx, calendarID int64, attendees []int64) error {
	for _, userID := range attendees {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_attendees (calendar_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			calendarID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attendee %d: %w", userID, err)
		}
	}
	return nil
}

// attendeeError は参加者登録の外部キー違反をErrUnknownAttendeeに変換する。
// 呼び出し側のdeferでトランザクションはロールバックされる。
func attendeeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ErrUnknownAttendee
	}
	return &model.StorageError{Op: op, Err: err}
}

// compile-time interface check
var _ CalendarRepository = (*PostgresCalendarRepo)(nil)
