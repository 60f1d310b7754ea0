// Package tui is the interactive terminal calendar.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shiftcal/internal/calendar"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/prefs"
	"shiftcal/internal/render"
	"shiftcal/internal/rotation"
)

// Options configures a Model.
type Options struct {
	// Calendar is the layout; the zero value means calendar.DefaultOptions.
	Calendar calendar.Options
	Styles   render.Styles

	// Prefs receives the team on every change. Nil disables persistence.
	Prefs *prefs.Preferences

	Team  rotation.Team
	Month rotation.Month

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// teamSavedMsg reports the outcome of persisting a team selection.
type teamSavedMsg struct {
	team rotation.Team
	err  error
}

// Model is the bubbletea model for the calendar.
type Model struct {
	opts  Options
	keys  keyMap
	help  help.Model
	team  rotation.Team
	month rotation.Month
	page  *model.Page
	err   error
	width int
}

// New builds the initial page for opts.Team and opts.Month.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Calendar.Locale.Code == "" {
		opts.Calendar = calendar.DefaultOptions()
	}
	if !opts.Team.Valid() {
		opts.Team = rotation.DefaultTeam
	}
	if opts.Month == (rotation.Month{}) {
		opts.Month = rotation.MonthOf(opts.Now())
	}
	m := Model{
		opts:  opts,
		keys:  defaultKeys(),
		help:  help.New(),
		team:  opts.Team,
		month: opts.Month,
	}
	m.rebuild()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// Team returns the selected team.
func (m Model) Team() rotation.Team { return m.team }

// Month returns the viewed month.
func (m Model) Month() rotation.Month { return m.month }

// Page returns the current layout.
func (m Model) Page() *model.Page { return m.page }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case teamSavedMsg:
		if msg.err != nil {
			appLog.Error("tui: saving team failed", msg.err, "team", string(msg.team))
			m.err = msg.err
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Prev):
			m.month = m.month.Add(-1)
			m.rebuild()
		case key.Matches(msg, m.keys.Next):
			m.month = m.month.Add(1)
			m.rebuild()
		case key.Matches(msg, m.keys.Today):
			m.month = rotation.MonthOf(m.opts.Now())
			m.rebuild()
		case key.Matches(msg, m.keys.TeamA):
			return m.selectTeam(rotation.TeamA)
		case key.Matches(msg, m.keys.TeamB):
			return m.selectTeam(rotation.TeamB)
		case key.Matches(msg, m.keys.TeamC):
			return m.selectTeam(rotation.TeamC)
		case key.Matches(msg, m.keys.TeamD):
			return m.selectTeam(rotation.TeamD)
		}
	}
	return m, nil
}

func (m Model) selectTeam(t rotation.Team) (tea.Model, tea.Cmd) {
	if t == m.team {
		return m, nil
	}
	m.team = t
	m.rebuild()

	p := m.opts.Prefs
	if p == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		return teamSavedMsg{team: t, err: p.SetSelectedTeam(context.Background(), t)}
	}
}

// rebuild recomputes the schedule; called whenever team or month changes.
func (m *Model) rebuild() {
	page, err := calendar.Build(m.team, m.month, m.opts.Now(), m.opts.Calendar)
	if err != nil {
		m.err = err
		return
	}
	m.page = page
	m.err = nil
}

func (m Model) View() string {
	if m.page == nil {
		if m.err != nil {
			return "error: " + m.err.Error() + "\n"
		}
		return ""
	}
	loc := m.opts.Calendar.Locale
	body := render.Page(m.page, loc.TeamLabel, loc.Planner, m.opts.Styles)
	footer := m.help.View(m.keys)
	if m.err != nil {
		footer = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")).Render(m.err.Error()) + "\n" + footer
	}
	return body + "\n" + footer + "\n"
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	_, err := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
