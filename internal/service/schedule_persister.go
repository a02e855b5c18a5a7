package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/solver"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleItemWriter interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error
}

// SchedulePersister replaces the stored timetable with a solver result.
type SchedulePersister struct {
	tx          txProvider
	assignments assignmentLister
	items       scheduleItemWriter
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSchedulePersister wires the persister.
func NewSchedulePersister(tx txProvider, assignments assignmentLister, items scheduleItemWriter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *SchedulePersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulePersister{
		tx:          tx,
		assignments: assignments,
		items:       items,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// Persist deletes every schedule item and inserts one row per placed
// variable in a single transaction. On any error nothing is changed.
func (p *SchedulePersister) Persist(ctx context.Context, solution solver.Solution) (count int, err error) {
	if len(solution) == 0 {
		return 0, appErrors.Clone(appErrors.ErrEngineNoOutput, "refusing to persist an empty timetable")
	}

	tx, err := p.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	removed, err := p.items.DeleteAll(ctx, tx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear timetable")
	}

	assignments, err := p.assignments.List(ctx, tx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	byID := lo.KeyBy(assignments, func(a models.Assignment) string { return a.ID })

	items := make([]models.ScheduleItem, 0, len(solution))
	for _, v := range solution.SortedVariables() {
		assignment, ok := byID[v.AssignmentID]
		if !ok {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("solution references unknown assignment %s", v.AssignmentID))
			return 0, err
		}
		slot := solution[v]
		items = append(items, models.ScheduleItem{
			AssignmentID: assignment.ID,
			SubjectID:    assignment.SubjectID,
			ClassID:      assignment.ClassID,
			TeacherID:    assignment.TeacherID,
			Day:          slot.Day,
			Session:      slot.Session,
			Period:       slot.Period,
		})
	}

	if err = p.items.InsertBatch(ctx, tx, items); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}
	if err = tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
	}

	if cacheErr := p.cache.InvalidateTimetables(ctx); cacheErr != nil {
		p.logger.Warn("timetable cache not invalidated", zap.Error(cacheErr))
	}
	p.metrics.SetScheduleItems(len(items))
	p.logger.Info("timetable persisted", zap.Int64("removed", removed), zap.Int("inserted", len(items)))
	return len(items), nil
}
