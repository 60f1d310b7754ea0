package rotation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBadMonth is returned by ParseMonth for input that is not YYYY-MM.
	ErrBadMonth = errors.New("rotation: month must be YYYY-MM")
	// ErrOutOfRange is returned for months outside [MinMonth, MaxMonth].
	ErrOutOfRange = errors.New("rotation: outside supported range")
)

// SupportedYears bounds parsed input on both sides of the reference date.
// Every schedule is walked from ReferenceDate, so the cost of a month grows
// with its distance from it.
const SupportedYears = 50

var (
	MinMonth = MonthOf(ReferenceDate).Add(-12 * SupportedYears)
	MaxMonth = MonthOf(ReferenceDate).Add(12 * SupportedYears)
)

// Month is a calendar year+month pair, the unit the views page through.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "2025-03". Months outside MinMonth..MaxMonth are
// rejected with ErrOutOfRange.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrBadMonth, s)
	}
	m := MonthOf(t)
	if err := CheckMonth(m); err != nil {
		return Month{}, err
	}
	return m, nil
}

// CheckMonth returns ErrOutOfRange unless MinMonth <= m <= MaxMonth.
func CheckMonth(m Month) error {
	if m.Before(MinMonth) || MaxMonth.Before(m) {
		return fmt.Errorf("%w: %s not in %s..%s", ErrOutOfRange, m, MinMonth, MaxMonth)
	}
	return nil
}

// First returns the first day of the month at midnight UTC.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last day of the month at midnight UTC.
func (m Month) Last() time.Time {
	return m.Add(1).First().AddDate(0, 0, -1)
}

// Add moves the month by n (negative moves back).
func (m Month) Add(n int) Month {
	return MonthOf(m.First().AddDate(0, n, 0))
}

// Contains reports whether the calendar day of t falls inside m.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// DateLayout is the key format used wherever a day is rendered as text.
const DateLayout = "2006-01-02"

// Date strips the clock and zone from t, keeping the calendar day it shows.
// All map keys in this package are produced by Date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "2025-01-20". Days outside the supported months are
// rejected with ErrOutOfRange.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if err := CheckMonth(MonthOf(t)); err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}
