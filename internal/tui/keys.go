package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Select    key.Binding
	Back      key.Binding
	Skip      key.Binding
	Replay    key.Binding
	Reset     key.Binding
	Confirm   key.Binding
	Deny      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Skip:      key.NewBinding(key.WithKeys("s", " ", "space", "enter"), key.WithHelp("s/space", "start the challenge")),
		Replay:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "play again")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset stats")),
		Confirm:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "leave")),
		Deny:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "stay")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}
