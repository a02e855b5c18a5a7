package availability

// Merge combines a session template with an entity specific grid by logical
// OR. A nil grid counts as fully available.
func Merge(session, entity *Grid) Grid {
	var out Grid
	if session != nil {
		out = *session
	}
	if entity == nil {
		return out
	}
	for d := 0; d < Days; d++ {
		for p := 0; p < Periods; p++ {
			out[d][p] = out[d][p] || entity[d][p]
		}
	}
	return out
}

// MergeRows is Merge for raw matrices of any shape; missing cells are available.
func MergeRows(session, entity [][]bool) Grid {
	s := FromRows(session)
	e := FromRows(entity)
	return Merge(&s, &e)
}
