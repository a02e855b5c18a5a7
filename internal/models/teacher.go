package models

import (
	"time"

	"github.com/noah-isme/sma-timetable/internal/availability"
)

// Teacher represents an instructor together with personal unavailable periods.
type Teacher struct {
	ID           string            `db:"id" json:"id"`
	Name         string            `db:"name" json:"name"`
	Availability availability.Grid `db:"availability" json:"availability"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}
