package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/continuity"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/solver"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/jobs"
)

const generateJobType = "timetable.generate"

type snapshotSource interface {
	Load(ctx context.Context) (taskgraph.Snapshot, error)
}

type solutionPersister interface {
	Persist(ctx context.Context, solution solver.Solution) (int, error)
}

// RunStatus is the externally visible state of a generation run.
type RunStatus struct {
	RunID      string                `json:"run_id"`
	Phase      solver.Phase          `json:"phase"`
	Percent    int                   `json:"percent"`
	Message    string                `json:"message,omitempty"`
	Error      *appErrors.Error      `json:"error,omitempty"`
	Tasks      int                   `json:"tasks"`
	Periods    int                   `json:"periods"`
	Placed     int                   `json:"placed"`
	Persisted  int                   `json:"persisted"`
	Skipped    []taskgraph.Skip      `json:"skipped,omitempty"`
	Mismatches []continuity.Mismatch `json:"mismatches,omitempty"`
	Log        []string              `json:"log,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// GeneratorConfig tunes the generator.
type GeneratorConfig struct {
	// LogTail caps the engine lines kept in the status.
	LogTail int
}

// GeneratorService runs load, build, solve and persist in the background.
// One run executes at a time; starting a new run cancels the current one.
type GeneratorService struct {
	loader    snapshotSource
	solver    solver.Solver
	persister solutionPersister
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       GeneratorConfig
	queue     *jobs.Queue

	mu     sync.Mutex
	status RunStatus
	now    func() time.Time
}

// NewGeneratorService wires the service and its single-worker queue. Run must
// be called before runs can be started.
func NewGeneratorService(loader snapshotSource, engine solver.Solver, persister solutionPersister, metrics *MetricsService, logger *zap.Logger, cfg GeneratorConfig) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LogTail <= 0 {
		cfg.LogTail = 200
	}
	svc := &GeneratorService{
		loader:    loader,
		solver:    engine,
		persister: persister,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		status:    RunStatus{Phase: solver.PhaseIdle},
		now:       time.Now,
	}
	svc.queue = jobs.NewQueue("timetable-generator", svc.execute, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		Logger:     logger,
	})
	return svc
}

// Run starts the background worker. It is stopped by Stop or when ctx ends.
func (s *GeneratorService) Run(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels any run in flight and waits for the worker to exit.
func (s *GeneratorService) Stop() {
	s.queue.Stop()
}

// Start queues a new run and returns its initial status. A run already in
// flight is cancelled first.
func (s *GeneratorService) Start(ctx context.Context) (RunStatus, error) {
	runID := uuid.NewString()

	s.mu.Lock()
	previous := s.status
	s.status = RunStatus{
		RunID:     runID,
		Phase:     solver.PhaseIdle,
		Message:   "queued",
		StartedAt: s.now().UTC(),
	}
	started := s.status
	s.mu.Unlock()

	if previous.RunID != "" && !previous.Phase.Terminal() {
		s.queue.Cancel(previous.RunID)
		s.logger.Info("cancelling previous timetable run", zap.String("run_id", previous.RunID), zap.String("next_run_id", runID))
	}

	if err := s.queue.Enqueue(jobs.Job{ID: runID, Type: generateJobType}); err != nil {
		appErr := appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "timetable generator is not running")
		s.finish(runID, solver.PhaseFailed, appErr)
		return RunStatus{}, appErr
	}

	s.logger.Info("timetable run queued", zap.String("run_id", runID))
	return started, nil
}

// Cancel stops the current run. It fails with NOT_FOUND when nothing is in flight.
func (s *GeneratorService) Cancel(ctx context.Context) (RunStatus, error) {
	current := s.Status()
	if current.RunID == "" || current.Phase.Terminal() {
		return current, appErrors.Clone(appErrors.ErrNotFound, "no timetable run in progress")
	}

	if !s.queue.Cancel(current.RunID) {
		// Still queued; the worker will drop it without reporting.
		s.finish(current.RunID, solver.PhaseCancelled, appErrors.Clone(appErrors.ErrSolveCancelled, ""))
	}
	s.logger.Info("timetable run cancel requested", zap.String("run_id", current.RunID))
	return s.Status(), nil
}

// Status returns a copy of the latest run state.
func (s *GeneratorService) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	status.Log = append([]string(nil), s.status.Log...)
	status.Skipped = append([]taskgraph.Skip(nil), s.status.Skipped...)
	status.Mismatches = append([]continuity.Mismatch(nil), s.status.Mismatches...)
	return status
}

// Wait blocks until the run with the given id has finished or ctx ends.
func (s *GeneratorService) Wait(ctx context.Context, runID string) (RunStatus, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		status := s.Status()
		if status.RunID != runID {
			return status, appErrors.Clone(appErrors.ErrSolveCancelled, "run was replaced by a newer run")
		}
		if status.FinishedAt != nil {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *GeneratorService) execute(ctx context.Context, job jobs.Job) error {
	runID := job.ID
	start := time.Now()
	logger := s.logger.With(zap.String("run_id", runID))

	tracker := solver.NewProgressTracker(func(p solver.Progress) {
		s.update(runID, func(st *RunStatus) {
			st.Phase = p.Phase
			st.Percent = p.Percent
			if p.Message != "" {
				st.Message = p.Message
			}
		})
	})
	ctx = solver.WithLineSink(ctx, func(line string) { s.appendLog(runID, line) })

	err := s.pipeline(ctx, runID, tracker.Func(), logger)

	status := s.Status()
	skipped, mismatches := 0, 0
	if status.RunID == runID {
		skipped, mismatches = len(status.Skipped), len(status.Mismatches)
	}

	phase := solver.PhaseDone
	switch {
	case err == nil:
		logger.Info("timetable run finished", zap.Duration("duration", time.Since(start)))
	case solver.IsCancelled(err) || errors.Is(ctx.Err(), context.Canceled):
		phase = solver.PhaseCancelled
		if !solver.IsCancelled(err) {
			err = appErrors.Wrap(err, appErrors.ErrSolveCancelled.Code, appErrors.ErrSolveCancelled.Status, appErrors.ErrSolveCancelled.Message)
		}
		logger.Info("timetable run cancelled", zap.Duration("duration", time.Since(start)))
	default:
		phase = solver.PhaseFailed
		logger.Error("timetable run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
	}

	s.metrics.ObserveRun(string(phase), time.Since(start), skipped, mismatches)
	s.finish(runID, phase, err)
	// The outcome is reported through the run status.
	return nil
}

func (s *GeneratorService) pipeline(ctx context.Context, runID string, progress solver.ProgressFunc, logger *zap.Logger) error {
	progress.Report(solver.PhaseLoading, 10, "loading timetable data")
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	progress.Report(solver.PhaseLoading, 20, fmt.Sprintf("loaded %d teachers, %d curricula, %d classes",
		len(snap.Teachers), len(snap.Curricula), len(snap.Classes)))
	if err := ctx.Err(); err != nil {
		return err
	}

	progress.Report(solver.PhaseBuilding, 30, "building tasks")
	result := taskgraph.Build(snap, logger)
	periods := taskgraph.TotalPeriods(result.Tasks)
	s.update(runID, func(st *RunStatus) {
		st.Tasks = len(result.Tasks)
		st.Periods = periods
		st.Skipped = result.Skipped
	})
	progress.Report(solver.PhaseBuilding, 35, fmt.Sprintf("%d tasks built, %d periods to place, %d assignments skipped",
		len(result.Tasks), periods, len(result.Skipped)))

	solution, err := s.solver.Solve(ctx, result.Tasks, progress)
	if err != nil {
		return err
	}
	if err := solver.Validate(result.Tasks, solution); err != nil {
		s.update(runID, func(st *RunStatus) { st.Placed = len(solution) })
		return err
	}
	progress.Report(solver.PhaseCollecting, 90, fmt.Sprintf("%d periods scheduled", len(solution)))

	mismatches := continuity.CheckDoubling(intents(result.Tasks), solutionItems(result.Tasks, solution))
	for _, m := range mismatches {
		logger.Warn("double period requested but not scheduled",
			zap.String("assignment_id", m.AssignmentID), zap.Int("periods", m.Periods))
	}
	s.update(runID, func(st *RunStatus) {
		st.Placed = len(solution)
		st.Mismatches = mismatches
	})

	if err := ctx.Err(); err != nil {
		return err
	}
	progress.Report(solver.PhasePersisting, 95, "saving timetable")
	count, err := s.persister.Persist(ctx, solution)
	if err != nil {
		return err
	}
	s.update(runID, func(st *RunStatus) { st.Persisted = count })
	progress.Report(solver.PhaseDone, 100, fmt.Sprintf("timetable saved with %d periods", count))
	return nil
}

func intents(tasks []taskgraph.TaskData) []continuity.Intent {
	return lo.Map(tasks, func(t taskgraph.TaskData, _ int) continuity.Intent {
		return continuity.Intent{
			AssignmentID:    t.AssignmentID,
			PeriodsPerWeek:  t.PeriodsPerWeek,
			ShouldBeDoubled: t.ShouldBeDoubled,
		}
	})
}

func solutionItems(tasks []taskgraph.TaskData, solution solver.Solution) []models.ScheduleItem {
	byAssignment := lo.KeyBy(tasks, func(t taskgraph.TaskData) string { return t.AssignmentID })
	items := make([]models.ScheduleItem, 0, len(solution))
	for _, v := range solution.SortedVariables() {
		task, ok := byAssignment[v.AssignmentID]
		if !ok {
			continue
		}
		slot := solution[v]
		items = append(items, models.ScheduleItem{
			AssignmentID: task.AssignmentID,
			SubjectID:    task.SubjectID,
			ClassID:      task.ClassID,
			TeacherID:    task.TeacherID,
			Day:          slot.Day,
			Session:      slot.Session,
			Period:       slot.Period,
		})
	}
	return items
}

func (s *GeneratorService) update(runID string, fn func(*RunStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.RunID != runID || s.status.FinishedAt != nil {
		return
	}
	fn(&s.status)
}

func (s *GeneratorService) appendLog(runID, line string) {
	s.update(runID, func(st *RunStatus) {
		st.Log = append(st.Log, line)
		if overflow := len(st.Log) - s.cfg.LogTail; overflow > 0 {
			st.Log = append([]string(nil), st.Log[overflow:]...)
		}
	})
}

func (s *GeneratorService) finish(runID string, phase solver.Phase, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.RunID != runID || s.status.FinishedAt != nil {
		return
	}
	finished := s.now().UTC()
	s.status.Phase = phase
	s.status.FinishedAt = &finished
	if err != nil {
		s.status.Error = appErrors.FromError(err)
		s.status.Message = s.status.Error.Message
		return
	}
	s.status.Percent = 100
}
