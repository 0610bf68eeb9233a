package sqlstore

import (
	"fmt"
	"time"
)

// TimeLayout is fixed-width so TEXT timestamps sort chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// timeValue scans TIMESTAMP columns that arrive as time.Time (pgx) or as
// text (sqlite).
type timeValue struct {
	Time time.Time
}

func (tv *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		tv.Time = v.UTC()
		return nil
	case string:
		return tv.parse(v)
	case []byte:
		return tv.parse(string(v))
	case nil:
		tv.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (tv *timeValue) parse(s string) error {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			tv.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

type nullTimeValue struct {
	timeValue
	Valid bool
}

func (nt *nullTimeValue) Scan(src any) error {
	if src == nil {
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	}
	nt.Valid = true
	return nt.timeValue.Scan(src)
}

func (nt nullTimeValue) ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
