// Package calendar lays a computed schedule out as month grids: the main
// view with neighbour-month days completing its weeks, and the three-month
// planner with blank leading cells.
package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"shiftcal/internal/model"
	"shiftcal/internal/rotation"
)

// PlannerOffsets are the months shown in the planner relative to the
// viewed month.
var PlannerOffsets = []int{-1, 0, 1}

// Options controls layout and labels.
type Options struct {
	WeekStart time.Weekday
	Locale    Locale
	Policy    rotation.WeekendPolicy
}

// DefaultOptions is a Monday-first Russian layout with the default weekend
// policy.
func DefaultOptions() Options {
	return Options{
		WeekStart: time.Monday,
		Locale:    LocaleFor("ru"),
		Policy:    rotation.DefaultWeekendPolicy,
	}
}

// ParseWeekStart maps the config value to a weekday; anything but "sunday"
// is Monday.
func ParseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Build computes the schedule for team around month and lays out the full
// page.
func Build(team rotation.Team, month rotation.Month, today time.Time, opts Options) (*model.Page, error) {
	return BuildFromSchedule(rotation.NewSchedule(team, month, opts.Policy), today, opts)
}

// BuildFromSchedule lays out a page from an existing schedule.
func BuildFromSchedule(s *rotation.Schedule, today time.Time, opts Options) (*model.Page, error) {
	today = rotation.Date(today)

	grid, err := MonthGrid(s.Anchor, s.Shifts, today, opts)
	if err != nil {
		return nil, err
	}

	planner := make([]model.MonthView, 0, len(PlannerOffsets))
	for _, off := range PlannerOffsets {
		mv, err := PlannerMonth(s.Anchor.Add(off), s.Shifts, today, opts)
		if err != nil {
			return nil, err
		}
		planner = append(planner, mv)
	}

	legend := make([]model.LegendItem, 0, len(rotation.Shifts))
	for _, sh := range rotation.Shifts {
		legend = append(legend, model.LegendItem{Shift: sh, Label: opts.Locale.ShiftName(sh)})
	}

	return &model.Page{
		Team:    s.Team,
		Teams:   rotation.Teams,
		Heading: opts.Locale.Heading,
		Today:   today,
		Legend:  legend,
		Main:    grid,
		Planner: planner,
	}, nil
}

// MonthGrid returns whole weeks covering m. Days outside m are included with
// InMonth=false.
func MonthGrid(m rotation.Month, shifts rotation.ShiftMap, today time.Time, opts Options) (model.MonthView, error) {
	first, last := m.First(), m.Last()
	lead := daysFromWeekStart(first, opts.WeekStart)
	trail := 6 - daysFromWeekStart(last, opts.WeekStart)

	days, err := Days(first.AddDate(0, 0, -lead), last.AddDate(0, 0, trail))
	if err != nil {
		return model.MonthView{}, err
	}

	cells := make([]model.Cell, 0, len(days))
	for _, d := range days {
		cells = append(cells, cell(d, m, shifts, today, opts.Locale))
	}
	return view(m, cells, opts), nil
}

// PlannerMonth returns m padded with blank cells to the week start, and to
// the end of its last week.
func PlannerMonth(m rotation.Month, shifts rotation.ShiftMap, today time.Time, opts Options) (model.MonthView, error) {
	days, err := Days(m.First(), m.Last())
	if err != nil {
		return model.MonthView{}, err
	}

	lead := daysFromWeekStart(m.First(), opts.WeekStart)
	cells := make([]model.Cell, lead, lead+len(days)+6)
	for i := range cells {
		cells[i] = model.Cell{Blank: true}
	}
	for _, d := range days {
		cells = append(cells, cell(d, m, shifts, today, opts.Locale))
	}
	for len(cells)%7 != 0 {
		cells = append(cells, model.Cell{Blank: true})
	}
	return view(m, cells, opts), nil
}

// Days lists every calendar day from start to end inclusive.
func Days(start, end time.Time) ([]time.Time, error) {
	start, end = rotation.Date(start), rotation.Date(end)
	if end.Before(start) {
		return nil, nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: day range %s..%s: %w",
			start.Format(rotation.DateLayout), end.Format(rotation.DateLayout), err)
	}
	return r.All(), nil
}

func daysFromWeekStart(d time.Time, start time.Weekday) int {
	return (int(d.Weekday()) - int(start) + 7) % 7
}

func cell(d time.Time, m rotation.Month, shifts rotation.ShiftMap, today time.Time, loc Locale) model.Cell {
	d = rotation.Date(d)
	s := shifts.Get(d)
	return model.Cell{
		Date:    d,
		Day:     d.Day(),
		Shift:   s,
		Label:   loc.ShiftName(s),
		InMonth: m.Contains(d),
		Today:   d.Equal(today),
	}
}

func view(m rotation.Month, cells []model.Cell, opts Options) model.MonthView {
	weeks := make([]model.Week, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		weeks = append(weeks, model.Week(cells[i:i+7]))
	}
	return model.MonthView{
		Month:    m,
		Key:      m.String(),
		Title:    opts.Locale.MonthTitle(m),
		Weekdays: opts.Locale.WeekdayHeaders(opts.WeekStart),
		Weeks:    weeks,
	}
}
