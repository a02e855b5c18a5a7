package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// insertChunk keeps bulk inserts well under the postgres parameter limit.
const insertChunk = 500

const scheduleItemColumns = `id, assignment_id, subject_id, class_id, teacher_id, day, session, period, created_at`

const scheduleItemOrder = `ORDER BY array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY']::text[], day::text) ASC,
array_position(ARRAY['MORNING','AFTERNOON']::text[], session::text) ASC, period ASC`

// ScheduleItemRepository stores the solved timetable.
type ScheduleItemRepository struct {
	db *sqlx.DB
}

// NewScheduleItemRepository constructs the repository.
func NewScheduleItemRepository(db *sqlx.DB) *ScheduleItemRepository {
	return &ScheduleItemRepository{db: db}
}

func (r *ScheduleItemRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteAll clears the timetable and returns the number of removed rows.
func (r *ScheduleItemRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM schedule_items`)
	if err != nil {
		return 0, fmt.Errorf("delete schedule items: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted schedule rows: %w", err)
	}
	return affected, nil
}

// InsertBatch writes items in multi-row statements, preserving slice order.
func (r *ScheduleItemRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
	}

	const query = `INSERT INTO schedule_items (` + scheduleItemColumns + `)
VALUES (:id, :assignment_id, :subject_id, :class_id, :teacher_id, :day, :session, :period, :created_at)`

	for start := 0; start < len(items); start += insertChunk {
		end := start + insertChunk
		if end > len(items) {
			end = len(items)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, items[start:end]); err != nil {
			return fmt.Errorf("insert schedule items: %w", err)
		}
	}
	return nil
}

// ListByClass returns the timetable of a class ordered by day, session and period.
func (r *ScheduleItemRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items WHERE class_id = $1 ` + scheduleItemOrder
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list schedule items by class: %w", err)
	}
	return items, nil
}

// ListByTeacher returns the timetable of a teacher ordered by day, session and period.
func (r *ScheduleItemRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items WHERE teacher_id = $1 ` + scheduleItemOrder
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedule items by teacher: %w", err)
	}
	return items, nil
}

// ListAll returns the whole timetable.
func (r *ScheduleItemRepository) ListAll(ctx context.Context) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items ` + scheduleItemOrder
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list schedule items: %w", err)
	}
	return items, nil
}
