// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and its button and quit channels
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ButtonPressMsg is a button press from the keyboard
type ButtonPressMsg struct {
	Button int
}

// QuitMsg asks the host to shut down
type QuitMsg struct{}

// Controls holds channels carrying user input out of the TUI
type Controls struct {
	Presses chan ButtonPressMsg
	Quit    chan QuitMsg
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Presses: make(chan ButtonPressMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		lastPress: -1,
		controls:  controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
