package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev  key.Binding
	Next  key.Binding
	Today key.Binding
	TeamA key.Binding
	TeamB key.Binding
	TeamC key.Binding
	TeamD key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous month")),
		Next:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next month")),
		Today: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		TeamA: key.NewBinding(key.WithKeys("1", "a"), key.WithHelp("1-4", "team")),
		TeamB: key.NewBinding(key.WithKeys("2", "b")),
		TeamC: key.NewBinding(key.WithKeys("3", "c")),
		TeamD: key.NewBinding(key.WithKeys("4", "d")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.TeamA, k.Today, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Today},
		{k.TeamA, k.Help, k.Quit},
	}
}
