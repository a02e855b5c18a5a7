package models

import "time"

// Curriculum defines how many periods of a subject a grade receives per week.
type Curriculum struct {
	GradeID         string    `db:"grade_id" json:"grade_id" validate:"required"`
	SubjectID       string    `db:"subject_id" json:"subject_id" validate:"required"`
	PeriodsPerWeek  int       `db:"periods_per_week" json:"periods_per_week" validate:"gte=0,lte=60"`
	ShouldBeDoubled bool      `db:"should_be_doubled" json:"should_be_doubled"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CurriculumKey identifies a curriculum row.
type CurriculumKey struct {
	GradeID   string
	SubjectID string
}

// Key returns the composite identity of the curriculum.
func (c Curriculum) Key() CurriculumKey {
	return CurriculumKey{GradeID: c.GradeID, SubjectID: c.SubjectID}
}
