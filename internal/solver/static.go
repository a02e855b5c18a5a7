package solver

import (
	"context"
	"time"

	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

// StaticSolver returns a canned result. Useful for wiring tests and dry runs.
type StaticSolver struct {
	Solution Solution
	Err      error
	// Delay holds the result back, honouring cancellation.
	Delay time.Duration
}

// Solve returns a copy of the configured solution.
func (s StaticSolver) Solve(ctx context.Context, tasks []taskgraph.TaskData, progress ProgressFunc) (Solution, error) {
	progress.Report(PhaseValidating, 40, "validating tasks")
	if len(tasks) == 0 {
		return nil, emptyProblem()
	}

	progress.Report(PhaseRunning, 50, "static solver running")
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, cancelled(ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	if s.Err != nil {
		return nil, s.Err
	}
	progress.Report(PhaseCollecting, 90, "collecting placements")
	if len(s.Solution) == 0 {
		return nil, noOutput(nil, "")
	}
	out := make(Solution, len(s.Solution))
	for v, slot := range s.Solution {
		out[v] = slot
	}
	return out, nil
}
