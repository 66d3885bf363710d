package project

import (
	"fmt"
	"time"
)

// Month identifies one calendar month in a given location.
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month(), Loc: t.Location()}
}

// ParseMonth parses "2025-03" (or "2025-3") in the local time zone.
func ParseMonth(s string) (Month, error) {
	t, err := time.ParseInLocation("2006-1", s, time.Local)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) location() *time.Location {
	if m.Loc == nil {
		return time.Local
	}
	return m.Loc
}

// Key is the cache key of the month, "{year}-{month}" without zero padding.
func (m Month) Key() string {
	return fmt.Sprintf("%d-%d", m.Year, int(m.Month))
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start is midnight on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.location())
}

// End is the last representable instant of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Add returns the month n months away. n may be negative.
func (m Month) Add(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}
