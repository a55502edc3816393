package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle      key.Binding
	Reset       key.Binding
	Preset      key.Binding
	MinutesUp   key.Binding
	MinutesDown key.Binding
	SecondsUp   key.Binding
	SecondsDown key.Binding
	RestUp      key.Binding
	RestDown    key.Binding
	EditMinutes key.Binding
	EditSeconds key.Binding
	EditRest    key.Binding
	FullScreen  key.Binding
	History     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "start/pause")),
		Reset:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Preset:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "preset")),
		MinutesUp:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "minutes")),
		MinutesDown: key.NewBinding(key.WithKeys("down")),
		SecondsUp:   key.NewBinding(key.WithKeys("right"), key.WithHelp("←/→", "seconds")),
		SecondsDown: key.NewBinding(key.WithKeys("left")),
		RestUp:      key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "rest")),
		RestDown:    key.NewBinding(key.WithKeys("[")),
		EditMinutes: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "edit minutes")),
		EditSeconds: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "edit seconds")),
		EditRest:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit rest")),
		FullScreen:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full screen")),
		History:     key.NewBinding(key.WithKeys("h", "tab"), key.WithHelp("h", "history")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Preset, k.FullScreen, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Preset},
		{k.MinutesUp, k.SecondsUp, k.RestUp},
		{k.EditMinutes, k.EditSeconds, k.EditRest},
		{k.FullScreen, k.History, k.Quit},
	}
}
