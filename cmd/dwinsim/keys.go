package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	cw       key.Binding
	ccw      key.Binding
	confirm  key.Binding
	card     key.Binding
	runout   key.Binding
	command  key.Binding
	copySnap key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		cw: key.NewBinding(
			key.WithKeys("down", "j", "right", "l"),
			key.WithHelp("↓/j", "turn cw"),
		),
		ccw: key.NewBinding(
			key.WithKeys("up", "k", "left", "h"),
			key.WithHelp("↑/k", "turn ccw"),
		),
		confirm: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "press"),
		),
		card: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "insert/remove card"),
		),
		runout: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle runout"),
		),
		command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command"),
		),
		copySnap: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy state"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.cw, k.ccw, k.confirm, k.command, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.cw, k.ccw, k.confirm},
		{k.card, k.runout, k.command},
		{k.copySnap, k.help, k.quit},
	}
}
