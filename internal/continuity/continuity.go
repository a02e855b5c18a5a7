// Package continuity detects double periods: two adjacent periods of the same
// subject for the same class. The flag is always recomputed from stored rows.
package continuity

import (
	"sort"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// IsConsecutive reports whether b directly follows or precedes a on the same
// day for the same subject and class.
func IsConsecutive(a, b models.ScheduleItem) bool {
	if a.Day != b.Day || a.SubjectID != b.SubjectID || a.ClassID != b.ClassID {
		return false
	}
	diff := a.Period - b.Period
	return diff == 1 || diff == -1
}

// SortItems orders items by day, session, then period in place.
func SortItems(items []models.ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Day.Index(), items[j].Day.Index()
		if di != dj {
			return di < dj
		}
		if items[i].Session != items[j].Session {
			return items[i].Session.Offset() < items[j].Session.Offset()
		}
		return items[i].Period < items[j].Period
	})
}

// MarkDoubles sorts a copy of items and flags every cell that forms a double
// period with its previous or next neighbour.
func MarkDoubles(items []models.ScheduleItem) []models.TimetableCell {
	sorted := make([]models.ScheduleItem, len(items))
	copy(sorted, items)
	SortItems(sorted)

	cells := make([]models.TimetableCell, len(sorted))
	for i, item := range sorted {
		double := false
		if i > 0 && IsConsecutive(sorted[i-1], item) {
			double = true
		}
		if i < len(sorted)-1 && IsConsecutive(item, sorted[i+1]) {
			double = true
		}
		cells[i] = models.TimetableCell{ScheduleItem: item, Double: double}
	}
	return cells
}

// Intent is the curriculum side of the doubling question for one assignment.
type Intent struct {
	AssignmentID    string
	PeriodsPerWeek  int
	ShouldBeDoubled bool
}

// Mismatch reports an assignment whose curriculum asks for a double period
// that the solved schedule does not contain.
type Mismatch struct {
	AssignmentID string `json:"assignment_id"`
	Periods      int    `json:"periods"`
	Doubles      int    `json:"doubles"`
}

// CheckDoubling compares curriculum intent with the realised schedule.
// Assignments with fewer than two periods cannot be doubled and are ignored.
func CheckDoubling(intents []Intent, items []models.ScheduleItem) []Mismatch {
	byAssignment := make(map[string][]models.ScheduleItem)
	for _, item := range items {
		byAssignment[item.AssignmentID] = append(byAssignment[item.AssignmentID], item)
	}

	var mismatches []Mismatch
	for _, intent := range intents {
		if !intent.ShouldBeDoubled || intent.PeriodsPerWeek < 2 {
			continue
		}
		placed := byAssignment[intent.AssignmentID]
		doubles := countPairs(placed)
		if doubles == 0 {
			mismatches = append(mismatches, Mismatch{
				AssignmentID: intent.AssignmentID,
				Periods:      len(placed),
				Doubles:      doubles,
			})
		}
	}
	return mismatches
}

func countPairs(items []models.ScheduleItem) int {
	sorted := make([]models.ScheduleItem, len(items))
	copy(sorted, items)
	SortItems(sorted)

	pairs := 0
	for i := 1; i < len(sorted); i++ {
		if IsConsecutive(sorted[i-1], sorted[i]) {
			pairs++
			i++ // a period belongs to at most one double
		}
	}
	return pairs
}
