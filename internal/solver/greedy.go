package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

// GreedySolver places periods first-fit, one task at a time. It respects
// teacher and class availability and never double books either, but it does
// not backtrack, so it may reject problems a real engine could solve.
type GreedySolver struct{}

// Solve places every occurrence of every task or rejects the whole problem.
func (GreedySolver) Solve(ctx context.Context, tasks []taskgraph.TaskData, progress ProgressFunc) (Solution, error) {
	progress.Report(PhaseValidating, 40, "validating tasks")
	if len(tasks) == 0 {
		return nil, emptyProblem()
	}

	ordered := make([]taskgraph.TaskData, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].TaskID < ordered[j].TaskID })

	progress.Report(PhaseRunning, 50, "placing periods")
	p := newPlacer()
	solution := Solution{}
	for i, task := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		slots, ok := p.place(task)
		if !ok {
			return nil, rejected(fmt.Sprintf("no free slot left for assignment %s", task.AssignmentID))
		}
		for idx, slot := range slots {
			solution[Variable{AssignmentID: task.AssignmentID, Index: idx}] = slot
		}
		progress.Report(PhaseRunning, 50+40*(i+1)/len(ordered), "")
	}

	if len(solution) == 0 {
		return nil, noOutput(nil, "")
	}
	return solution, nil
}

type placer struct {
	teachers map[string]*availability.Grid
	classes  map[string]*availability.Grid
}

func newPlacer() *placer {
	return &placer{
		teachers: map[string]*availability.Grid{},
		classes:  map[string]*availability.Grid{},
	}
}

// grid returns the occupancy grid for key, folding in the task's availability.
func (p *placer) grid(index map[string]*availability.Grid, key string, busy availability.Grid) *availability.Grid {
	g, ok := index[key]
	if !ok {
		g = &availability.Grid{}
		index[key] = g
	}
	merged := availability.Merge(g, &busy)
	*g = merged
	return g
}

func (p *placer) place(task taskgraph.TaskData) ([]Slot, bool) {
	teacher := p.grid(p.teachers, task.TeacherID, task.TeacherAvailability)
	class := p.grid(p.classes, task.ClassID, task.ClassAvailability)
	offset := task.Session.Offset()

	var slots []Slot
	usedDays := map[int]bool{}
	take := func(day, period, length int) {
		weekday, _ := models.WeekdayAt(day)
		for i := 0; i < length; i++ {
			teacher.Block(day, offset+period+i)
			class.Block(day, offset+period+i)
			slots = append(slots, Slot{Day: weekday, Session: task.Session, Period: period + i + 1})
		}
		usedDays[day] = true
	}

	remaining := task.PeriodsPerWeek
	if task.ShouldBeDoubled {
		for remaining >= 2 {
			day, period, ok := find(teacher, class, offset, 2, usedDays)
			if !ok {
				break
			}
			take(day, period, 2)
			remaining -= 2
		}
	}
	for remaining > 0 {
		day, period, ok := find(teacher, class, offset, 1, usedDays)
		if !ok {
			return nil, false
		}
		take(day, period, 1)
		remaining--
	}
	return slots, true
}

// find looks for length free consecutive periods, preferring days the task
// does not use yet. period is 0-based within the session.
func find(teacher, class *availability.Grid, offset, length int, usedDays map[int]bool) (int, int, bool) {
	for _, spread := range []bool{true, false} {
		for day := 0; day < availability.Days; day++ {
			if spread && usedDays[day] {
				continue
			}
			for period := 0; period+length <= availability.PeriodsPerSession; period++ {
				free := true
				for i := 0; i < length; i++ {
					col := offset + period + i
					if teacher.Busy(day, col) || class.Busy(day, col) {
						free = false
						break
					}
				}
				if free {
					return day, period, true
				}
			}
		}
	}
	return 0, 0, false
}
