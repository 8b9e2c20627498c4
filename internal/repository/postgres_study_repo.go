package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/studyplatform/internal/model"
)

// PostgresStudyRepo はPostgreSQLを使用したスタディリポジトリ。
type PostgresStudyRepo struct {
	db *sqlx.DB
}

// NewPostgresStudyRepo はPostgresStudyRepoを生成する。
func NewPostgresStudyRepo(db *sqlx.DB) *PostgresStudyRepo {
	return &PostgresStudyRepo{db: db}
}

// Create はスタディを作成する。
func (r *PostgresStudyRepo) Create(ctx context.Context, study *model.Study) error {
	if study.Status == "" {
		study.Status = model.StatusActive
	}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO studies (title, status) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		study.Title, study.Status,
	).Scan(&study.ID, &study.CreatedAt, &study.UpdatedAt)
	if err != nil {
		return &model.StorageError{Op: "study.create", Err: err}
	}
	return nil
}

// FindByID は指定IDのスタディを取得する。見つからない場合はnilを返す。
func (r *PostgresStudyRepo) FindByID(ctx context.Context, id int64) (*model.Study, error) {
	study := &model.Study{}
	err := r.db.GetContext(ctx, study,
		`SELECT id, title, status, created_at, updated_at FROM studies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "study.find_by_id", Err: err}
	}
	return study, nil
}

// compile-time interface check
var _ StudyRepository = (*PostgresStudyRepo)(nil)
