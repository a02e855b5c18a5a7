package solver

import (
	"fmt"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

// Validate checks that a solution places every occurrence of every task exactly
// once, inside the task's session, and nothing else.
func Validate(tasks []taskgraph.TaskData, solution Solution) error {
	byAssignment := make(map[string]taskgraph.TaskData, len(tasks))
	expected := 0
	for _, task := range tasks {
		byAssignment[task.AssignmentID] = task
		expected += task.PeriodsPerWeek
	}

	for _, v := range solution.SortedVariables() {
		task, ok := byAssignment[v.AssignmentID]
		if !ok {
			return incomplete(fmt.Sprintf("engine placed %s which is not part of the task set", v))
		}
		if v.Index < 0 || v.Index >= task.PeriodsPerWeek {
			return incomplete(fmt.Sprintf("engine placed %s but the assignment has %d periods per week", v, task.PeriodsPerWeek))
		}
		slot := solution[v]
		if slot.Day.Index() < 0 {
			return incomplete(fmt.Sprintf("engine placed %s on unknown day %q", v, slot.Day))
		}
		if slot.Session != task.Session {
			return incomplete(fmt.Sprintf("engine placed %s in session %s, expected %s", v, slot.Session, task.Session))
		}
		if slot.Period < 1 || slot.Period > availability.PeriodsPerSession {
			return incomplete(fmt.Sprintf("engine placed %s at period %d outside 1..%d", v, slot.Period, availability.PeriodsPerSession))
		}
	}

	// Every variable is known and in range, so a short count means gaps.
	if len(solution) < expected {
		for _, task := range tasks {
			for i := 0; i < task.PeriodsPerWeek; i++ {
				v := Variable{AssignmentID: task.AssignmentID, Index: i}
				if _, ok := solution[v]; !ok {
					return incomplete(fmt.Sprintf("engine left %s unplaced (%d of %d periods placed)", v, len(solution), expected))
				}
			}
		}
	}
	return nil
}
