package calendar

import (
	"fmt"
	"time"

	"shiftcal/internal/rotation"
)

// Locale holds every user-visible string of the calendar views.
type Locale struct {
	Code string

	// Shifts is indexed by shift code.
	Shifts [4]string
	// Weekdays is indexed by time.Weekday (Sunday first).
	Weekdays [7]string
	// Months is indexed by time.Month - 1.
	Months [12]string

	Heading   string
	TeamLabel string
	Planner   string
	Legend    string
}

var locales = map[string]Locale{
	"ru": {
		Code:     "ru",
		Shifts:   [4]string{"Выходной", "Утро (1)", "День (2)", "Ночь (3)"},
		Weekdays: [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"},
		Months: [12]string{
			"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
			"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
		},
		Heading:   "График смен",
		TeamLabel: "Команда",
		Planner:   "Планировщик",
		Legend:    "Обозначения",
	},
	"en": {
		Code:     "en",
		Shifts:   [4]string{"Day off", "Morning (1)", "Day (2)", "Night (3)"},
		Weekdays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		Heading:   "Shift schedule",
		TeamLabel: "Team",
		Planner:   "Planner",
		Legend:    "Legend",
	},
}

// LocaleFor returns the named locale, falling back to Russian.
func LocaleFor(code string) Locale {
	if l, ok := locales[code]; ok {
		return l
	}
	return locales["ru"]
}

// ShiftName returns the label for s; unknown codes read as the off label.
func (l Locale) ShiftName(s rotation.Shift) string {
	if !s.Valid() {
		s = rotation.Off
	}
	return l.Shifts[s]
}

// MonthTitle renders "Март 2025".
func (l Locale) MonthTitle(m rotation.Month) string {
	return fmt.Sprintf("%s %d", l.Months[m.Month-1], m.Year)
}

// Team renders "Команда A".
func (l Locale) Team(t rotation.Team) string {
	return l.TeamLabel + " " + string(t)
}

// WeekdayHeaders returns seven short weekday names starting at start.
func (l Locale) WeekdayHeaders(start time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = l.Weekdays[(int(start)+i)%7]
	}
	return out
}
