package models

import (
	"fmt"
	"time"
)

// DayLayout is the textual form of a calendar day.
const DayLayout = "2006-01-02"

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range. Start is included,
// End is not.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// DayRange returns the UTC window covering the calendar day of day.
func DayRange(day time.Time) TimeRange {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDay parses a YYYY-MM-DD date as a UTC midnight.
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return day, nil
}

// FormatDay renders day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format(DayLayout)
}
