// Package render draws calendar pages for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shiftcal/internal/model"
	"shiftcal/internal/rotation"
)

const (
	mainCellWidth    = 14
	plannerCellWidth = 4
)

// Shift colours follow the web view: green off, blue morning, yellow day,
// red night.
var (
	ShiftBackground = [4]lipgloss.Color{"#dcfce7", "#dbeafe", "#fef9c3", "#fee2e2"}
	ShiftForeground = [4]lipgloss.Color{"#166534", "#1e40af", "#854d0e", "#991b1b"}
	Accent          = lipgloss.Color("#2563eb")
	Muted           = lipgloss.Color("#6b7280")
)

// Styles is the set of lipgloss styles used by the renderer.
type Styles struct {
	Shift   [4]lipgloss.Style
	Heading lipgloss.Style
	Title   lipgloss.Style
	Weekday lipgloss.Style
	Outside lipgloss.Style
	Today   lipgloss.Style
	Team    lipgloss.Style
	Active  lipgloss.Style
	Panel   lipgloss.Style
}

// DefaultStyles returns the coloured styles.
func DefaultStyles() Styles {
	var st Styles
	for i := range st.Shift {
		st.Shift[i] = lipgloss.NewStyle().
			Background(ShiftBackground[i]).
			Foreground(ShiftForeground[i])
	}
	st.Heading = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	st.Title = lipgloss.NewStyle().Bold(true)
	st.Weekday = lipgloss.NewStyle().Foreground(Muted)
	st.Outside = lipgloss.NewStyle().Faint(true)
	st.Today = lipgloss.NewStyle().Bold(true).Underline(true)
	st.Team = lipgloss.NewStyle().Padding(0, 1)
	st.Active = lipgloss.NewStyle().Padding(0, 1).Bold(true).
		Background(Accent).Foreground(lipgloss.Color("#ffffff"))
	st.Panel = lipgloss.NewStyle().MarginRight(3)
	return st
}

// PlainStyles renders without colour or emphasis; only layout remains.
func PlainStyles() Styles {
	var st Styles
	for i := range st.Shift {
		st.Shift[i] = lipgloss.NewStyle()
	}
	st.Heading = lipgloss.NewStyle()
	st.Title = lipgloss.NewStyle()
	st.Weekday = lipgloss.NewStyle()
	st.Outside = lipgloss.NewStyle()
	st.Today = lipgloss.NewStyle()
	st.Team = lipgloss.NewStyle().Padding(0, 1)
	st.Active = lipgloss.NewStyle().Padding(0, 1)
	st.Panel = lipgloss.NewStyle().MarginRight(3)
	return st
}

// Page draws the heading, team selector, main month, legend and planner.
func Page(p *model.Page, teamLabel, plannerLabel string, st Styles) string {
	var b strings.Builder

	b.WriteString(st.Heading.Render(p.Heading))
	b.WriteString("\n\n")
	b.WriteString(Teams(p.Teams, p.Team, teamLabel, st))
	b.WriteString("\n\n")
	b.WriteString(Month(p.Main, st))
	b.WriteString("\n")
	b.WriteString(Legend(p.Legend, st))
	b.WriteString("\n\n")
	b.WriteString(st.Heading.Render(plannerLabel))
	b.WriteString("\n\n")
	b.WriteString(Planner(p.Planner, st))
	b.WriteString("\n")
	return b.String()
}

// Teams draws the selector row; the active team is highlighted (and
// bracketed, so it stays visible without colour).
func Teams(teams []rotation.Team, active rotation.Team, label string, st Styles) string {
	parts := make([]string, 0, len(teams))
	for _, t := range teams {
		name := label + " " + string(t)
		if t == active {
			parts = append(parts, st.Active.Render("["+name+"]"))
			continue
		}
		parts = append(parts, st.Team.Render(" "+name+" "))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// Month draws the main grid: day number plus shift label in every cell.
func Month(mv model.MonthView, st Styles) string {
	return grid(mv, st, mainCellWidth, func(c model.Cell) string {
		return fmt.Sprintf("%2d %s", c.Day, c.Label)
	})
}

// PlannerMonth draws a compact grid with day numbers only.
func PlannerMonth(mv model.MonthView, st Styles) string {
	return grid(mv, st, plannerCellWidth, func(c model.Cell) string {
		return fmt.Sprintf("%2d", c.Day)
	})
}

// Planner lays the planner months side by side.
func Planner(views []model.MonthView, st Styles) string {
	panels := make([]string, 0, len(views))
	for _, mv := range views {
		panels = append(panels, st.Panel.Render(PlannerMonth(mv, st)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

// Legend lists the shift labels in their colours.
func Legend(items []model.LegendItem, st Styles) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, shiftStyle(st, it.Shift).Padding(0, 1).Render(it.Label))
	}
	return strings.Join(parts, " ")
}

func grid(mv model.MonthView, st Styles, width int, text func(model.Cell) string) string {
	var b strings.Builder
	b.WriteString(st.Title.Render(mv.Title))
	b.WriteString("\n")

	head := make([]string, 0, len(mv.Weekdays))
	for _, wd := range mv.Weekdays {
		head = append(head, st.Weekday.Width(width).Render(wd))
	}
	b.WriteString(strings.Join(head, ""))

	for _, w := range mv.Weeks {
		b.WriteString("\n")
		row := make([]string, 0, len(w))
		for _, c := range w {
			row = append(row, renderCell(c, st, width, text))
		}
		b.WriteString(strings.Join(row, ""))
	}
	return b.String()
}

func renderCell(c model.Cell, st Styles, width int, text func(model.Cell) string) string {
	if c.Blank {
		return strings.Repeat(" ", width)
	}
	style := shiftStyle(st, c.Shift).Width(width).MaxWidth(width)
	if !c.InMonth {
		style = style.Inherit(st.Outside)
	}
	if c.Today {
		style = style.Inherit(st.Today)
	}
	return style.Render(text(c))
}

func shiftStyle(st Styles, s rotation.Shift) lipgloss.Style {
	if !s.Valid() {
		s = rotation.Off
	}
	return st.Shift[s]
}
