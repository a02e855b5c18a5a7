package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type teacherLister interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

type gradeLister interface {
	List(ctx context.Context) ([]models.Grade, error)
}

type curriculumLister interface {
	List(ctx context.Context) ([]models.Curriculum, error)
}

type assignmentLister interface {
	List(ctx context.Context, exec sqlx.ExtContext) ([]models.Assignment, error)
}

type sessionTemplateLister interface {
	List(ctx context.Context) ([]models.SessionTemplate, error)
}

// SnapshotLoader reads every table the task builder joins.
type SnapshotLoader struct {
	teachers    teacherLister
	classes     classLister
	grades      gradeLister
	curricula   curriculumLister
	assignments assignmentLister
	sessions    sessionTemplateLister
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSnapshotLoader wires the loader.
func NewSnapshotLoader(
	teachers teacherLister,
	classes classLister,
	grades gradeLister,
	curricula curriculumLister,
	assignments assignmentLister,
	sessions sessionTemplateLister,
	metrics *MetricsService,
	logger *zap.Logger,
) *SnapshotLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotLoader{
		teachers:    teachers,
		classes:     classes,
		grades:      grades,
		curricula:   curricula,
		assignments: assignments,
		sessions:    sessions,
		metrics:     metrics,
		logger:      logger,
	}
}

// Load fetches the tables concurrently. The first failure cancels the rest.
func (l *SnapshotLoader) Load(ctx context.Context) (taskgraph.Snapshot, error) {
	var snap taskgraph.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(l.timed("teachers", func() (err error) {
		snap.Teachers, err = l.teachers.List(gctx)
		return err
	}))
	g.Go(l.timed("classes", func() (err error) {
		snap.Classes, err = l.classes.List(gctx)
		return err
	}))
	g.Go(l.timed("grades", func() (err error) {
		snap.Grades, err = l.grades.List(gctx)
		return err
	}))
	g.Go(l.timed("curricula", func() (err error) {
		snap.Curricula, err = l.curricula.List(gctx)
		return err
	}))
	g.Go(l.timed("assignments", func() (err error) {
		snap.Assignments, err = l.assignments.List(gctx, nil)
		return err
	}))
	g.Go(l.timed("session_templates", func() (err error) {
		snap.Sessions, err = l.sessions.List(gctx)
		return err
	}))

	if err := g.Wait(); err != nil {
		return taskgraph.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable data")
	}

	l.logger.Info("timetable data loaded",
		zap.Int("teachers", len(snap.Teachers)),
		zap.Int("classes", len(snap.Classes)),
		zap.Int("grades", len(snap.Grades)),
		zap.Int("curricula", len(snap.Curricula)),
		zap.Int("assignments", len(snap.Assignments)),
		zap.Int("session_templates", len(snap.Sessions)),
	)
	return snap, nil
}

func (l *SnapshotLoader) timed(label string, fn func() error) func() error {
	return func() error {
		start := time.Now()
		err := fn()
		l.metrics.ObserveDBQuery("load_"+label, time.Since(start))
		return err
	}
}
