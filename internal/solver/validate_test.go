package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/taskgraph"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func validationTasks() []taskgraph.TaskData {
	return []taskgraph.TaskData{
		{TaskID: 0, AssignmentID: "a-1", ClassID: "c-1", TeacherID: "t-1", PeriodsPerWeek: 2, Session: models.SessionMorning},
		{TaskID: 1, AssignmentID: "a-2", ClassID: "c-1", TeacherID: "t-2", PeriodsPerWeek: 1, Session: models.SessionMorning},
	}
}

func completeSolution() Solution {
	return Solution{
		{AssignmentID: "a-1", Index: 0}: {Day: models.Monday, Session: models.SessionMorning, Period: 1},
		{AssignmentID: "a-1", Index: 1}: {Day: models.Monday, Session: models.SessionMorning, Period: 2},
		{AssignmentID: "a-2", Index: 0}: {Day: models.Tuesday, Session: models.SessionMorning, Period: 5},
	}
}

func TestValidateAcceptsCompleteSolution(t *testing.T) {
	assert.NoError(t, Validate(validationTasks(), completeSolution()))
}

func TestValidateAcceptsGreedyOutput(t *testing.T) {
	tasks := validationTasks()
	solution, err := GreedySolver{}.Solve(context.Background(), tasks, nil)
	require.NoError(t, err)
	assert.NoError(t, Validate(tasks, solution))
}

func TestValidateRejectsDefectiveSolutions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(Solution)
		message string
	}{
		{
			name:    "missing occurrence",
			mutate:  func(s Solution) { delete(s, Variable{AssignmentID: "a-1", Index: 1}) },
			message: "engine left a-1#1 unplaced (2 of 3 periods placed)",
		},
		{
			name: "assignment outside the task set",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-9", Index: 0}] = Slot{Day: models.Friday, Session: models.SessionMorning, Period: 3}
			},
			message: "engine placed a-9#0 which is not part of the task set",
		},
		{
			name: "occurrence beyond weekly load",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-2", Index: 1}] = Slot{Day: models.Friday, Session: models.SessionMorning, Period: 3}
			},
			message: "engine placed a-2#1 but the assignment has 1 periods per week",
		},
		{
			name: "period out of range",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-2", Index: 0}] = Slot{Day: models.Tuesday, Session: models.SessionMorning, Period: 6}
			},
			message: "engine placed a-2#0 at period 6 outside 1..5",
		},
		{
			name: "period zero",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-2", Index: 0}] = Slot{Day: models.Tuesday, Session: models.SessionMorning, Period: 0}
			},
			message: "engine placed a-2#0 at period 0 outside 1..5",
		},
		{
			name: "wrong session",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-2", Index: 0}] = Slot{Day: models.Tuesday, Session: models.SessionAfternoon, Period: 1}
			},
			message: "engine placed a-2#0 in session AFTERNOON, expected MORNING",
		},
		{
			name: "unknown day",
			mutate: func(s Solution) {
				s[Variable{AssignmentID: "a-2", Index: 0}] = Slot{Day: models.Weekday("SUNDAY"), Session: models.SessionMorning, Period: 1}
			},
			message: `engine placed a-2#0 on unknown day "SUNDAY"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solution := completeSolution()
			tt.mutate(solution)

			err := Validate(validationTasks(), solution)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrEngineIncomplete)
			assert.Equal(t, tt.message, appErrors.FromError(err).Message)
		})
	}
}
