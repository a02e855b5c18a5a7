// Package taskgraph turns the relational school model into solver-ready tasks.
package taskgraph

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/availability"
	"github.com/noah-isme/sma-timetable/internal/models"
)

// Snapshot is the in-memory copy of everything the builder joins.
type Snapshot struct {
	Teachers    []models.Teacher
	Classes     []models.Class
	Grades      []models.Grade
	Curricula   []models.Curriculum
	Assignments []models.Assignment
	Sessions    []models.SessionTemplate
}

// TaskData is one solver input record: a weekly teaching assignment and its constraints.
type TaskData struct {
	TaskID              int
	AssignmentID        string
	ClassID             string
	SubjectID           string
	PeriodsPerWeek      int
	ShouldBeDoubled     bool
	Session             models.Session
	GradeLevel          int
	TeacherID           string
	TeacherAvailability availability.Grid
	ClassAvailability   availability.Grid
}

// SkipReason explains why an assignment produced no task.
type SkipReason string

const (
	SkipClassMissing      SkipReason = "class_not_found"
	SkipGradeMissing      SkipReason = "grade_not_found"
	SkipCurriculumMissing SkipReason = "curriculum_not_found"
	SkipTeacherMissing    SkipReason = "teacher_not_found"
)

// Skip records an assignment excluded from the task set.
type Skip struct {
	AssignmentID string     `json:"assignment_id"`
	Reason       SkipReason `json:"reason"`
}

// Result is the output of Build.
type Result struct {
	Tasks   []TaskData
	Skipped []Skip
}

// Build joins assignments with curriculum, teacher and merged class
// availability. Assignments with unresolvable references are skipped and
// logged; Build never fails.
func Build(snap Snapshot, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	classes := lo.KeyBy(snap.Classes, func(c models.Class) string { return c.ID })
	grades := lo.KeyBy(snap.Grades, func(g models.Grade) string { return g.ID })
	teachers := lo.KeyBy(snap.Teachers, func(t models.Teacher) string { return t.ID })
	curricula := lo.KeyBy(snap.Curricula, func(c models.Curriculum) models.CurriculumKey { return c.Key() })
	sessions := lo.KeyBy(snap.Sessions, func(s models.SessionTemplate) models.Session { return s.Session })

	result := Result{Tasks: make([]TaskData, 0, len(snap.Assignments))}
	skip := func(a models.Assignment, reason SkipReason, fields ...zap.Field) {
		fields = append(fields, zap.String("assignment_id", a.ID), zap.String("reason", string(reason)))
		logger.Warn("skipping assignment", fields...)
		result.Skipped = append(result.Skipped, Skip{AssignmentID: a.ID, Reason: reason})
	}

	nextID := 0
	for _, a := range snap.Assignments {
		class, ok := classes[a.ClassID]
		if !ok {
			skip(a, SkipClassMissing, zap.String("class_id", a.ClassID))
			continue
		}
		grade, ok := grades[class.GradeID]
		if !ok {
			skip(a, SkipGradeMissing, zap.String("grade_id", class.GradeID))
			continue
		}
		teacher, ok := teachers[a.TeacherID]
		if !ok {
			skip(a, SkipTeacherMissing, zap.String("teacher_id", a.TeacherID))
			continue
		}
		curriculum, ok := curricula[models.CurriculumKey{GradeID: grade.ID, SubjectID: a.SubjectID}]
		if !ok {
			skip(a, SkipCurriculumMissing, zap.String("class", class.Name), zap.String("subject_id", a.SubjectID))
			continue
		}

		var sessionGrid *availability.Grid
		if tmpl, ok := sessions[grade.Session]; ok {
			sessionGrid = &tmpl.Availability
		}
		// Per-class overrides are not stored yet; the class grid is the session template.
		var classGrid availability.Grid

		result.Tasks = append(result.Tasks, TaskData{
			TaskID:              nextID,
			AssignmentID:        a.ID,
			ClassID:             a.ClassID,
			SubjectID:           a.SubjectID,
			PeriodsPerWeek:      curriculum.PeriodsPerWeek,
			ShouldBeDoubled:     curriculum.ShouldBeDoubled,
			Session:             grade.Session,
			GradeLevel:          grade.Level,
			TeacherID:           teacher.ID,
			TeacherAvailability: teacher.Availability,
			ClassAvailability:   availability.Merge(sessionGrid, &classGrid),
		})
		nextID++
	}
	return result
}

// TotalPeriods sums the weekly periods across tasks.
func TotalPeriods(tasks []TaskData) int {
	return lo.SumBy(tasks, func(t TaskData) int { return t.PeriodsPerWeek })
}
