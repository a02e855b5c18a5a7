package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// AssignmentRepository persists teacher-subject-class assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns all assignments ordered by id. Pass a transaction to read
// within it.
func (r *AssignmentRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Assignment, error) {
	const query = `SELECT id, teacher_id, subject_id, class_id, created_at FROM assignments ORDER BY id ASC`
	var assignments []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &assignments, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.SaveBatch(ctx, nil, []models.Assignment{*assignment}, func(saved models.Assignment) {
		*assignment = saved
	})
}

// SaveBatch inserts assignments, updating rows that already exist by id.
// onSaved, when set, receives each row with generated fields filled in.
func (r *AssignmentRepository) SaveBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment, onSaved func(models.Assignment)) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO assignments (id, teacher_id, subject_id, class_id, created_at)
VALUES (:id, :teacher_id, :subject_id, :class_id, :created_at)
ON CONFLICT (id) DO UPDATE
SET teacher_id = EXCLUDED.teacher_id,
    subject_id = EXCLUDED.subject_id,
    class_id = EXCLUDED.class_id`

	for i := range assignments {
		a := assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, a); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		if onSaved != nil {
			onSaved(a)
		}
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
