// Package rotation maps calendar days to shifts for the four-team
// rotation. Everything here is pure: the same inputs always produce the same
// map, and nothing is logged or persisted.
package rotation

import (
	"fmt"
	"time"
)

// ReferenceDate is weekday cursor position 0 for every team. It is a Monday.
var ReferenceDate = time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

// WindowMonths is how far past the viewed month a schedule is computed.
const WindowMonths = 4

// WeekendPolicy decides what Saturday and Sunday receive. The cursor never
// advances on either day whatever the policy.
type WeekendPolicy string

const (
	// WeekendCarry gives Saturday and Sunday the code of the preceding Friday.
	WeekendCarry WeekendPolicy = "carry"
	// WeekendSunday only writes Sunday (copied from Friday); Saturday is left
	// out of the map and therefore reads as Off.
	WeekendSunday WeekendPolicy = "sunday"
	// WeekendOff marks both weekend days as Off.
	WeekendOff WeekendPolicy = "off"
)

// DefaultWeekendPolicy is used when none is configured.
const DefaultWeekendPolicy = WeekendCarry

// ParseWeekendPolicy validates a configured policy name.
func ParseWeekendPolicy(s string) (WeekendPolicy, error) {
	switch p := WeekendPolicy(s); p {
	case WeekendCarry, WeekendSunday, WeekendOff:
		return p, nil
	case "":
		return DefaultWeekendPolicy, nil
	default:
		return "", fmt.Errorf("rotation: unknown weekend policy %q", s)
	}
}

// ShiftMap holds the computed shift for every day of a window.
type ShiftMap map[time.Time]Shift

// Get returns the shift for the calendar day of t, or Off if that day was not
// computed.
func (m ShiftMap) Get(t time.Time) Shift {
	if s, ok := m[Date(t)]; ok {
		return s
	}
	return Off
}

// ComputeShiftsMap walks every day from start to end inclusive. Weekdays take
// pattern[cursor mod 8] and advance the cursor; weekends follow policy.
// An end before start yields an empty map.
func ComputeShiftsMap(start, end time.Time, pattern Pattern, policy WeekendPolicy) ShiftMap {
	start, end = Date(start), Date(end)
	out := make(ShiftMap)
	if end.Before(start) {
		return out
	}

	cursor := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday:
			switch policy {
			case WeekendSunday:
				// left unassigned
			case WeekendOff:
				out[d] = Off
			default:
				out[d] = out.Get(d.AddDate(0, 0, -1))
			}
		case time.Sunday:
			if policy == WeekendOff {
				out[d] = Off
				continue
			}
			// Friday is absent only when the walk started on the weekend.
			out[d] = out.Get(d.AddDate(0, 0, -2))
		default:
			out[d] = pattern[cursor%PatternLen]
			cursor++
		}
	}
	return out
}

// BuildWindow returns the range computed for a view of anchor: from the
// reference date to anchor's first day plus WindowMonths months.
func BuildWindow(anchor Month) (start, end time.Time) {
	return ReferenceDate, anchor.Add(WindowMonths).First()
}

// Schedule is one build of the shift map for a team and viewed month. It is
// immutable; a change of team or month means building a new one.
type Schedule struct {
	Team   Team
	Anchor Month
	Policy WeekendPolicy
	Start  time.Time
	End    time.Time
	Shifts ShiftMap
}

// NewSchedule computes the window for anchor and walks it for team.
func NewSchedule(team Team, anchor Month, policy WeekendPolicy) *Schedule {
	start, end := BuildWindow(anchor)
	return &Schedule{
		Team:   team,
		Anchor: anchor,
		Policy: policy,
		Start:  start,
		End:    end,
		Shifts: ComputeShiftsMap(start, end, PatternFor(team), policy),
	}
}

// ShiftOn returns the shift for the day of t; days outside the window read
// as Off.
func (s *Schedule) ShiftOn(t time.Time) Shift {
	return s.Shifts.Get(t)
}

// Covers reports whether t lies inside the computed window.
func (s *Schedule) Covers(t time.Time) bool {
	d := Date(t)
	return !d.Before(s.Start) && !d.After(s.End)
}

// Lookup builds a schedule wide enough to contain t and returns its shift.
// Days before ReferenceDate read as Off.
func Lookup(team Team, t time.Time, policy WeekendPolicy) Shift {
	return NewSchedule(team, MonthOf(t), policy).ShiftOn(t)
}
