package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// GradeRepository reads grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns every grade ordered by level.
func (r *GradeRepository) List(ctx context.Context) ([]models.Grade, error) {
	const query = `SELECT id, name, level, session, created_at, updated_at FROM grades ORDER BY level ASC, id ASC`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}
