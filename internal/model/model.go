package model

import (
	"time"

	"shiftcal/internal/rotation"
)

// Cell is one square of a month grid.
type Cell struct {
	// Blank cells pad the first week of planner months; every other field is
	// zero for them.
	Blank bool `json:"blank,omitempty"`

	Date  time.Time      `json:"date"`
	Day   int            `json:"day"`
	Shift rotation.Shift `json:"shift"`
	// Label is the localized shift name.
	Label string `json:"label"`

	// InMonth is false for the neighbour-month days that complete the first
	// and last week of the main view.
	InMonth bool `json:"in_month"`
	Today   bool `json:"today"`
}

// Week is seven consecutive cells starting at the configured week start.
type Week []Cell

// MonthView is a single rendered month.
type MonthView struct {
	Month    rotation.Month `json:"-"`
	Key      string         `json:"month"`
	Title    string         `json:"title"`
	Weekdays []string       `json:"weekdays"`
	Weeks    []Week         `json:"weeks"`
}

// LegendItem explains one shift code.
type LegendItem struct {
	Shift rotation.Shift `json:"shift"`
	Label string         `json:"label"`
}

// Page is everything a front end needs to draw the calendar for one team
// and one viewed month.
type Page struct {
	Team    rotation.Team   `json:"team"`
	Teams   []rotation.Team `json:"teams"`
	Heading string          `json:"heading"`
	Today   time.Time       `json:"today"`
	Legend  []LegendItem    `json:"legend"`

	Main    MonthView   `json:"main"`
	Planner []MonthView `json:"planner"`
}
