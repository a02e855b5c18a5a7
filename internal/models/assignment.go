package models

import "time"

// Assignment binds a teacher to teach one subject to one class for the week.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id" validate:"required"`
	SubjectID string    `db:"subject_id" json:"subject_id" validate:"required"`
	ClassID   string    `db:"class_id" json:"class_id" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
