package models

import "time"

// ScheduleItem is one solved period, denormalised for read access.
type ScheduleItem struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Day          Weekday   `db:"day" json:"day"`
	Session      Session   `db:"session" json:"session"`
	Period       int       `db:"period" json:"period"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimetableCell decorates a schedule item for rendering.
type TimetableCell struct {
	ScheduleItem
	Double bool `json:"double"`
}
