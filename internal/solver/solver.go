// Package solver hands task sets to a timetable engine and returns the placed
// periods. The engine itself is opaque: solve(tasks) -> slot per occurrence or failure.
package solver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

// Variable identifies one occurrence of an assignment to be placed.
type Variable struct {
	AssignmentID string `json:"assignment_id"`
	Index        int    `json:"index"`
}

func (v Variable) String() string {
	return fmt.Sprintf("%s#%d", v.AssignmentID, v.Index)
}

// Slot is the coordinate a variable was placed at. Period is 1-based within the session.
type Slot struct {
	Day     models.Weekday `json:"day"`
	Session models.Session `json:"session"`
	Period  int            `json:"period"`
}

// Solution maps each placed variable to its slot.
type Solution map[Variable]Slot

// SortedVariables returns the variables ordered by assignment then index.
func (s Solution) SortedVariables() []Variable {
	vars := make([]Variable, 0, len(s))
	for v := range s {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].AssignmentID != vars[j].AssignmentID {
			return vars[i].AssignmentID < vars[j].AssignmentID
		}
		return vars[i].Index < vars[j].Index
	})
	return vars
}

// Solver is the capability every engine backend provides.
type Solver interface {
	Solve(ctx context.Context, tasks []taskgraph.TaskData, progress ProgressFunc) (Solution, error)
}

// Phase names a state of a solve run.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseLoading     Phase = "LOADING"
	PhaseBuilding    Phase = "BUILDING"
	PhaseValidating  Phase = "VALIDATING"
	PhaseSerializing Phase = "SERIALIZING"
	PhaseRunning     Phase = "RUNNING"
	PhaseCollecting  Phase = "COLLECTING"
	PhasePersisting  Phase = "PERSISTING"
	PhaseDone        Phase = "DONE"
	PhaseFailed      Phase = "FAILED"
	PhaseCancelled   Phase = "CANCELLED"
)

// Terminal reports whether no further transitions follow.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseCancelled
}

// Progress is a coarse, monotonic completion report.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress updates. Implementations must not block.
type ProgressFunc func(Progress)

// Report calls f when it is non-nil.
func (f ProgressFunc) Report(phase Phase, percent int, message string) {
	if f != nil {
		f(Progress{Phase: phase, Percent: percent, Message: message})
	}
}

// ProgressTracker enforces monotonic percentages across phases and keeps the last report.
type ProgressTracker struct {
	mu      sync.Mutex
	current Progress
	sink    ProgressFunc
}

// NewProgressTracker wraps sink with a monotonic filter.
func NewProgressTracker(sink ProgressFunc) *ProgressTracker {
	return &ProgressTracker{current: Progress{Phase: PhaseIdle}, sink: sink}
}

// Update records a report. Percentages lower than the last one are raised to it.
func (t *ProgressTracker) Update(p Progress) {
	t.mu.Lock()
	if p.Percent < t.current.Percent {
		p.Percent = t.current.Percent
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	t.current = p
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(p)
	}
}

// Func adapts the tracker to a ProgressFunc.
func (t *ProgressTracker) Func() ProgressFunc {
	return t.Update
}

// Current returns the latest report.
func (t *ProgressTracker) Current() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
