package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hitoshi/studyplatform/internal/model"
)

// PostgreSQLのSQLSTATE
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, nickname, email, provider_name, status, created_at, updated_at`

// FindActiveByEmailAndProvider は有効ユーザーをemailとプロバイダーで検索する。
func (r *PostgresUserRepo) FindActiveByEmailAndProvider(ctx context.Context, email string, provider model.ProviderName) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user,
		`SELECT `+userColumns+` FROM users
		 WHERE email = $1 AND provider_name = $2 AND status = $3`,
		email, provider, model.StatusActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "user.find_active", Err: err}
	}
	return user, nil
}

// Create はユーザーを作成する。ID・作成日時はDBで採番してuserに書き戻す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (int64, error) {
	if user.Status == "" {
		user.Status = model.StatusActive
	}

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (username, nickname, email, provider_name, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.Nickname, user.Email, user.ProviderName, user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrDuplicateActiveUser
		}
		return 0, &model.StorageError{Op: "user.create", Err: err}
	}
	return user.ID, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "user.find_by_id", Err: err}
	}
	return user, nil
}

// UpdateStatus はユーザーの状態を更新する。対象が存在しない場合はErrNotFoundを返す。
// 再有効化で有効ユーザーが重複する場合はErrDuplicateActiveUserを返す。
func (r *PostgresUserRepo) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateActiveUser
		}
		return &model.StorageError{Op: "user.update_status", Err: err}
	}
	return checkRowsAffected(result, "user.update_status")
}

// checkRowsAffected は更新件数が0件の場合にErrNotFoundを返す。
func checkRowsAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return &model.StorageError{Op: op, Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
