package tui

import "github.com/charmbracelet/bubbles/key"

// boardKeys are the timer board bindings. Lower case acts on the selected
// timer, upper case on every timer.
type boardKeys struct {
	Up        key.Binding
	Down      key.Binding
	Pause     key.Binding
	Stop      key.Binding
	Reset     key.Binding
	Delete    key.Binding
	PauseAll  key.Binding
	StopAll   key.Binding
	ResetAll  key.Binding
	DeleteAll key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultBoardKeys() boardKeys {
	return boardKeys{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Pause:     key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		PauseAll:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pause all")),
		StopAll:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "stop all")),
		ResetAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset all")),
		DeleteAll: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete all")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit (keep running)")),
	}
}

// ShortHelp implements help.KeyMap.
func (k boardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Stop, k.Reset, k.Delete, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k boardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Pause, k.Stop, k.Reset, k.Delete},
		{k.PauseAll, k.StopAll, k.ResetAll, k.DeleteAll},
		{k.Help, k.Quit},
	}
}
