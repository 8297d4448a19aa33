package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	First     key.Binding
	Last      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Expand    key.Binding
	Collapse  key.Binding
	Enter     key.Binding
	SwitchTab key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Help      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		First:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Last:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		ToggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
		Expand:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/confirm")),
		SwitchTab: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "ok button")),
		Confirm:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("esc/q", "abort")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	}
}

// ShortHelp implements help.KeyMap.
func (keys keyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Toggle, keys.Enter, keys.SwitchTab, keys.Cancel, keys.Help}
}

// FullHelp implements help.KeyMap.
func (keys keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.Up, keys.Down, keys.First, keys.Last},
		{keys.Toggle, keys.ToggleAll, keys.Expand, keys.Collapse},
		{keys.Enter, keys.SwitchTab, keys.Confirm, keys.Cancel},
	}
}
