package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// CurriculumRepository manages weekly period requirements per grade and subject.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs a CurriculumRepository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

func (r *CurriculumRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every curriculum row.
func (r *CurriculumRepository) List(ctx context.Context) ([]models.Curriculum, error) {
	const query = `SELECT grade_id, subject_id, periods_per_week, should_be_doubled, updated_at
FROM curricula ORDER BY grade_id ASC, subject_id ASC`
	var rows []models.Curriculum
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list curricula: %w", err)
	}
	return rows, nil
}

// UpsertBatch inserts curriculum rows, replacing existing ones with the same grade and subject.
func (r *CurriculumRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.Curriculum) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO curricula (grade_id, subject_id, periods_per_week, should_be_doubled, updated_at)
VALUES (:grade_id, :subject_id, :periods_per_week, :should_be_doubled, :updated_at)
ON CONFLICT (grade_id, subject_id) DO UPDATE
SET periods_per_week = EXCLUDED.periods_per_week,
    should_be_doubled = EXCLUDED.should_be_doubled,
    updated_at = EXCLUDED.updated_at`

	for i := range rows {
		row := &rows[i]
		row.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("upsert curriculum: %w", err)
		}
	}
	return nil
}
