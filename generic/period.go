package generic

// =============================================================================
// PERIOD - Inclusive calendar range
// =============================================================================

// Period is the closed interval [Start, End] of calendar days.
//
// Examples:
//   - A leave request from Jun 1 to Jun 5: 5 days
//   - Calendar year 2025: Jan 1 - Dec 31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// YearPeriod returns Jan 1 - Dec 31 of the given year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps reports whether two inclusive ranges share at least one day.
// Touching ranges (one ends the day the other starts) overlap.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

// DayCount is the inclusive number of calendar days in the period. It is
// zero or negative when End is before Start.
func (p Period) DayCount() int {
	return DaysBetween(p.Start, p.End) + 1
}

// SingleYear reports whether both ends fall in the same calendar year.
func (p Period) SingleYear() bool {
	return p.Start.Year() == p.End.Year()
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
