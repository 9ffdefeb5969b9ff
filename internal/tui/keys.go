package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the dashboard bindings. It satisfies help.KeyMap.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Start   key.Binding
	Toggle  key.Binding
	Stop    key.Binding
	Reset   key.Binding
	Ack     key.Binding
	Remove  key.Binding
	All     key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Start: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "start"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Ack: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "acknowledge"),
		),
		Remove: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "remove"),
		),
		All: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "pause all"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss toast"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Toggle, k.Stop, k.Reset, k.Ack, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Start, k.Toggle, k.Stop, k.Reset},
		{k.Ack, k.Remove, k.All, k.Dismiss},
		{k.Help, k.Quit},
	}
}
