package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/solver"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func mondayDouble() solver.Solution {
	return solver.Solution{
		{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
		{AssignmentID: "a-1", Index: 1}: {Day: models.Monday, Session: models.SessionMorning, Period: 2},
	}
}

func startGenerator(t *testing.T, svc *GeneratorService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	svc.Run(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Stop()
	})
}

func waitForRun(t *testing.T, svc *GeneratorService, runID string) RunStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := svc.Wait(ctx, runID)
	require.NoError(t, err)
	return status
}

func waitForPhase(t *testing.T, svc *GeneratorService, phase solver.Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return svc.Status().Phase == phase }, 5*time.Second, 5*time.Millisecond)
}

func TestGeneratorServiceEndToEnd(t *testing.T) {
	fixture := newSchoolFixture()
	db, mock := newTxMock(t)
	cacheRepo := &memoryCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, 0, zap.NewNop(), true)
	metrics := NewMetricsService()
	persister := NewSchedulePersister(db, fixture.assignments, fixture.items, cache, metrics, nil)
	svc := NewGeneratorService(fixture.loader(), solver.StaticSolver{Solution: mondayDouble()}, persister, metrics, nil, GeneratorConfig{})
	startGenerator(t, svc)

	mock.ExpectBegin()
	mock.ExpectCommit()

	started, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, started.RunID)

	status := waitForRun(t, svc, started.RunID)
	require.Equal(t, solver.PhaseDone, status.Phase, "run error: %v", status.Error)
	assert.Equal(t, 100, status.Percent)
	assert.Equal(t, 1, status.Tasks)
	assert.Equal(t, 2, status.Periods)
	assert.Equal(t, 2, status.Placed)
	assert.Equal(t, 2, status.Persisted)
	assert.Empty(t, status.Mismatches)
	assert.NotNil(t, status.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())

	timetable, _, err := fixture.timetables(cache).ClassTimetable(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, timetable.Cells, 2)
	assert.Equal(t, 1, timetable.Cells[0].Period)
	assert.Equal(t, 2, timetable.Cells[1].Period)
	assert.True(t, timetable.Cells[0].Double)
	assert.True(t, timetable.Cells[1].Double)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.SolverRuns)
	assert.Equal(t, uint64(2), snapshot.ScheduleItems)
}

func TestGeneratorServiceReportsDoublingMismatch(t *testing.T) {
	fixture := newSchoolFixture()
	db, mock := newTxMock(t)
	split := solver.Solution{
		{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
		{AssignmentID: "a-1", Index: 1}: {Day: models.Wednesday, Session: models.SessionMorning, Period: 1},
	}
	persister := NewSchedulePersister(db, fixture.assignments, fixture.items, nil, nil, nil)
	svc := NewGeneratorService(fixture.loader(), solver.StaticSolver{Solution: split}, persister, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	mock.ExpectBegin()
	mock.ExpectCommit()

	started, err := svc.Start(context.Background())
	require.NoError(t, err)

	status := waitForRun(t, svc, started.RunID)
	assert.Equal(t, solver.PhaseDone, status.Phase)
	require.Len(t, status.Mismatches, 1)
	assert.Equal(t, "a-1", status.Mismatches[0].AssignmentID)
	assert.Equal(t, 2, status.Persisted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratorServiceRejectsIncompleteSolution(t *testing.T) {
	tests := []struct {
		name     string
		solution solver.Solution
		placed   int
	}{
		{
			name: "half placed",
			solution: solver.Solution{
				{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
			},
			placed: 1,
		},
		{
			name: "placement for unknown assignment",
			solution: func() solver.Solution {
				s := mondayDouble()
				s[solver.Variable{AssignmentID: "a-404", Index: 0}] = solver.Slot{Day: models.Friday, Session: models.SessionMorning, Period: 1}
				return s
			}(),
			placed: 3,
		},
		{
			name: "period past the session",
			solution: solver.Solution{
				{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 5},
				{AssignmentID: "a-1", Index: 1}: {Day: models.Monday, Session: models.SessionMorning, Period: 6},
			},
			placed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persister := &recordingPersister{}
			svc := NewGeneratorService(newSchoolFixture().loader(), solver.StaticSolver{Solution: tt.solution}, persister, nil, nil, GeneratorConfig{})
			startGenerator(t, svc)

			started, err := svc.Start(context.Background())
			require.NoError(t, err)

			status := waitForRun(t, svc, started.RunID)
			assert.Equal(t, solver.PhaseFailed, status.Phase)
			assert.ErrorIs(t, status.Error, appErrors.ErrEngineIncomplete)
			assert.Equal(t, 2, status.Periods)
			assert.Equal(t, tt.placed, status.Placed)
			assert.Zero(t, status.Persisted)
			assert.Zero(t, persister.calls())
		})
	}
}

func TestGeneratorServiceEmptyProblemFails(t *testing.T) {
	fixture := newSchoolFixture()
	fixture.assignments.items = nil
	db, mock := newTxMock(t)
	persister := NewSchedulePersister(db, fixture.assignments, fixture.items, nil, nil, nil)
	svc := NewGeneratorService(fixture.loader(), solver.StaticSolver{Solution: mondayDouble()}, persister, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	started, err := svc.Start(context.Background())
	require.NoError(t, err)

	status := waitForRun(t, svc, started.RunID)
	assert.Equal(t, solver.PhaseFailed, status.Phase)
	require.NotNil(t, status.Error)
	assert.ErrorIs(t, status.Error, appErrors.ErrEmptyProblem)
	assert.Empty(t, fixture.items.inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratorServiceSolverRejection(t *testing.T) {
	fixture := newSchoolFixture()
	rejection := appErrors.Clone(appErrors.ErrEngineRejected, "no free slot left for assignment a-1")
	svc := NewGeneratorService(fixture.loader(), solver.StaticSolver{Err: rejection}, &recordingPersister{}, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	started, err := svc.Start(context.Background())
	require.NoError(t, err)

	status := waitForRun(t, svc, started.RunID)
	assert.Equal(t, solver.PhaseFailed, status.Phase)
	assert.ErrorIs(t, status.Error, appErrors.ErrEngineRejected)
	assert.Equal(t, "no free slot left for assignment a-1", status.Message)
}

func TestGeneratorServiceCancelLeavesScheduleUntouched(t *testing.T) {
	fixture := newSchoolFixture()
	fixture.items.stored = storedMathWeek()
	persister := &recordingPersister{}
	svc := NewGeneratorService(fixture.loader(), solver.StaticSolver{Solution: mondayDouble(), Delay: 10 * time.Second}, persister, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	started, err := svc.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, svc, solver.PhaseRunning)

	_, err = svc.Cancel(context.Background())
	require.NoError(t, err)

	status := waitForRun(t, svc, started.RunID)
	assert.Equal(t, solver.PhaseCancelled, status.Phase)
	assert.ErrorIs(t, status.Error, appErrors.ErrSolveCancelled)
	assert.Zero(t, persister.calls())
	assert.Len(t, fixture.items.stored, 3)
}

func TestGeneratorServiceCancelWithoutRun(t *testing.T) {
	svc := NewGeneratorService(newSchoolFixture().loader(), solver.StaticSolver{}, &recordingPersister{}, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	status, err := svc.Cancel(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, solver.PhaseIdle, status.Phase)
}

func TestGeneratorServiceRestartCancelsPreviousRun(t *testing.T) {
	fixture := newSchoolFixture()
	engine := &blockingOnceSolver{solution: mondayDouble()}
	persister := &recordingPersister{}
	svc := NewGeneratorService(fixture.loader(), engine, persister, nil, nil, GeneratorConfig{})
	startGenerator(t, svc)

	first, err := svc.Start(context.Background())
	require.NoError(t, err)
	waitForPhase(t, svc, solver.PhaseRunning)

	second, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first.RunID, second.RunID)

	status := waitForRun(t, svc, second.RunID)
	assert.Equal(t, solver.PhaseDone, status.Phase)
	assert.Equal(t, 1, persister.calls())
	assert.True(t, engine.firstCancelled())
}

func TestGeneratorServiceKeepsLogTail(t *testing.T) {
	fixture := newSchoolFixture()
	svc := NewGeneratorService(fixture.loader(), chattySolver{lines: 5, solution: mondayDouble()}, &recordingPersister{}, nil, nil, GeneratorConfig{LogTail: 3})
	startGenerator(t, svc)

	started, err := svc.Start(context.Background())
	require.NoError(t, err)

	status := waitForRun(t, svc, started.RunID)
	assert.Equal(t, solver.PhaseDone, status.Phase)
	assert.Equal(t, []string{"[ENGINE]: line 2", "[ENGINE]: line 3", "[ENGINE]: line 4"}, status.Log)
}

func TestGeneratorServiceStartRequiresWorker(t *testing.T) {
	svc := NewGeneratorService(newSchoolFixture().loader(), solver.StaticSolver{}, &recordingPersister{}, nil, nil, GeneratorConfig{})

	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrServiceUnavailable)
	assert.Equal(t, solver.PhaseFailed, svc.Status().Phase)
}

type recordingPersister struct {
	mu    sync.Mutex
	count int
}

func (r *recordingPersister) Persist(_ context.Context, solution solver.Solution) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return len(solution), nil
}

func (r *recordingPersister) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// blockingOnceSolver blocks its first call until cancelled and answers later calls.
type blockingOnceSolver struct {
	mu        sync.Mutex
	calls     int
	cancelled bool
	solution  solver.Solution
}

func (b *blockingOnceSolver) Solve(ctx context.Context, _ []taskgraph.TaskData, progress solver.ProgressFunc) (solver.Solution, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()

	progress.Report(solver.PhaseRunning, 50, "running")
	if first {
		<-ctx.Done()
		b.mu.Lock()
		b.cancelled = true
		b.mu.Unlock()
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrSolveCancelled.Code, appErrors.ErrSolveCancelled.Status, "cancelled")
	}
	return b.solution, nil
}

func (b *blockingOnceSolver) firstCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

type chattySolver struct {
	lines    int
	solution solver.Solution
}

func (c chattySolver) Solve(ctx context.Context, _ []taskgraph.TaskData, _ solver.ProgressFunc) (solver.Solution, error) {
	sink := solver.LineSinkFrom(ctx)
	for i := 0; i < c.lines; i++ {
		sink(fmt.Sprintf("[ENGINE]: line %d", i))
	}
	return c.solution, nil
}
