// Package availability models the weekly busy matrix shared by teachers,
// classes and session templates.
package availability

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Days covers Monday through Saturday.
	Days = 6
	// PeriodsPerSession is the number of teaching periods in one half-day.
	PeriodsPerSession = 5
	// Periods covers the morning and afternoon sessions back to back.
	Periods = 2 * PeriodsPerSession
	// Cells is the length of the serialized form.
	Cells = Days * Periods
)

// Grid marks unavailable (day, period) cells. true means busy.
type Grid [Days][Periods]bool

// Busy reports whether the cell is blocked. Out of range cells are never busy.
func (g Grid) Busy(day, period int) bool {
	if day < 0 || day >= Days || period < 0 || period >= Periods {
		return false
	}
	return g[day][period]
}

// Block marks a cell as unavailable. Out of range cells are ignored.
func (g *Grid) Block(day, period int) {
	if day < 0 || day >= Days || period < 0 || period >= Periods {
		return
	}
	g[day][period] = true
}

// IsEmpty reports whether every cell is available.
func (g Grid) IsEmpty() bool {
	for d := 0; d < Days; d++ {
		for p := 0; p < Periods; p++ {
			if g[d][p] {
				return false
			}
		}
	}
	return true
}

// String encodes the grid row-major as '1' (busy) and '0' (free).
func (g Grid) String() string {
	var sb strings.Builder
	sb.Grow(Cells)
	for d := 0; d < Days; d++ {
		for p := 0; p < Periods; p++ {
			if g[d][p] {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// Parse decodes a bit string. Missing cells resolve to available and
// characters past the 60th are ignored.
func Parse(s string) Grid {
	var g Grid
	for i := 0; i < len(s) && i < Cells; i++ {
		if s[i] == '1' {
			g[i/Periods][i%Periods] = true
		}
	}
	return g
}

// FromRows copies a ragged matrix into a grid, padding with available cells.
func FromRows(rows [][]bool) Grid {
	var g Grid
	for d := 0; d < len(rows) && d < Days; d++ {
		for p := 0; p < len(rows[d]) && p < Periods; p++ {
			g[d][p] = rows[d][p]
		}
	}
	return g
}

// Scan implements sql.Scanner for TEXT columns.
func (g *Grid) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = Grid{}
	case string:
		*g = Parse(v)
	case []byte:
		*g = Parse(string(v))
	default:
		return fmt.Errorf("availability: cannot scan %T into Grid", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (g Grid) Value() (driver.Value, error) {
	return g.String(), nil
}

// MarshalJSON encodes the grid as its bit string.
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON accepts either the bit string or a nested boolean matrix.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*g = Parse(raw)
		return nil
	}
	var rows [][]bool
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("availability: expected bit string or boolean matrix: %w", err)
	}
	*g = FromRows(rows)
	return nil
}
