package generic

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day, no time-of-day component
// =============================================================================

const DateLayout = "2006-01-02"

// TimePoint is a calendar date normalized to midnight UTC.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// StartOfDay truncates t to its calendar day in t's own location.
func StartOfDay(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts "2006-01-02" or a full RFC 3339 timestamp and returns
// the start of that day.
func ParseDate(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return StartOfDay(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return StartOfDay(t), nil
	}
	return TimePoint{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int      { return tp.Time.Year() }
func (tp TimePoint) IsZero() bool   { return tp.Time.IsZero() }
func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.String()), nil }

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// Value stores the day as YYYY-MM-DD text, which both SQLite TEXT and
// PostgreSQL DATE columns accept.
func (tp TimePoint) Value() (driver.Value, error) { return tp.String(), nil }

// Scan reads DATE columns returned either as time.Time (pgx) or text (sqlite).
func (tp *TimePoint) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*tp = NewTimePoint(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return tp.UnmarshalText([]byte(v))
	case []byte:
		return tp.UnmarshalText(v)
	case nil:
		*tp = TimePoint{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into TimePoint", src)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the number of whole days from `from` to `to`.
func DaysBetween(from, to TimePoint) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
