package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable/internal/availability"
)

// Session is the half of the school day a grade attends.
type Session string

const (
	SessionMorning   Session = "MORNING"
	SessionAfternoon Session = "AFTERNOON"
)

// Sessions lists the supported sessions in display order.
var Sessions = []Session{SessionMorning, SessionAfternoon}

// ParseSession normalises user input into a Session.
func ParseSession(raw string) (Session, error) {
	switch Session(strings.ToUpper(strings.TrimSpace(raw))) {
	case SessionMorning:
		return SessionMorning, nil
	case SessionAfternoon:
		return SessionAfternoon, nil
	}
	return "", fmt.Errorf("unknown session %q", raw)
}

// Offset returns the first grid column belonging to the session.
func (s Session) Offset() int {
	if s == SessionAfternoon {
		return availability.PeriodsPerSession
	}
	return 0
}

// Weekday enumerates teaching days.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
)

// Weekdays lists teaching days in grid row order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Index returns the grid row of the day or -1 when unknown.
func (d Weekday) Index() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

// WeekdayAt returns the day for a grid row.
func WeekdayAt(index int) (Weekday, bool) {
	if index < 0 || index >= len(Weekdays) {
		return "", false
	}
	return Weekdays[index], true
}

// SessionTemplate holds the busy matrix shared by every grade attending a session.
type SessionTemplate struct {
	Session      Session           `db:"session" json:"session"`
	Availability availability.Grid `db:"availability" json:"availability"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}
