// ABOUTME: Bubbletea model for the engine status view
// ABOUTME: Shows period counters, timing and LEDs; number keys press buttons
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
	"github.com/Resonate-Protocol/duplex-go/pkg/duplex"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Engine
	running bool
	status  string

	// Stream
	busName    string
	appName    string
	sampleRate int
	channels   int
	bitDepth   int
	frames     int
	period     time.Duration

	// Stats
	stats duplex.Stats

	// Controls
	leds      [control.NumLEDs]bool
	lastPress int // last button pressed, -1 for none

	showDebug bool

	width  int
	height int

	controls *Controls
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderStats()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	state := "Stopped"
	if m.running {
		state = "Running"
	}
	if m.status != "" {
		state = fmt.Sprintf("%s (%s)", state, m.status)
	}

	return fmt.Sprintf(`┌─ Duplex Audio Engine ────────────────────────────────┐
│ Status: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(state, 45))
}

func (m Model) renderStreamInfo() string {
	if m.sampleRate == 0 {
		return "│ No stream                                            │\n"
	}

	return fmt.Sprintf("│ Bus:    %-45s │\n"+
		"│ App:    %-45s │\n"+
		"│ Format: %-45s │\n",
		truncate(m.busName, 45),
		truncate(m.appName, 45),
		fmt.Sprintf("%dHz %s %d-bit, %d frames (%s)",
			m.sampleRate, channelName(m.channels), m.bitDepth, m.frames, formatDuration(m.period)))
}

func (m Model) renderStats() string {
	load := 0
	if m.period > 0 {
		load = int(100 * m.stats.MaxProcess / m.period)
	}

	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Periods: %-10d Processed: %-10d Active: %-4s │
│ Dropouts: %-43d │
│ Wake:    last %-10s max %-24s │
│ Process: last %-10s max %-24s │
│ Load:    [%s] %3d%%%-26s │
`, m.stats.Periods, m.stats.Processed, m.stats.Active,
		m.stats.Dropouts,
		formatDuration(m.stats.LastWake), formatDuration(m.stats.MaxWake),
		formatDuration(m.stats.LastProcess), formatDuration(m.stats.MaxProcess),
		renderBar(load, 100, 10), load, "")
}

func (m Model) renderControls() string {
	leds := ""
	for i, on := range m.leds {
		icon := "○"
		if on {
			icon = "●"
		}
		leds += fmt.Sprintf(" %d:%s", i, icon)
	}

	pressed := "none"
	if m.lastPress >= 0 {
		pressed = fmt.Sprintf("button %d", m.lastPress)
	}

	return fmt.Sprintf("├──────────────────────────────────────────────────────┤\n"+
		"│ LEDs:%-48s │\n"+
		"│ Last press: %-41s │\n", leds, pressed)
}

func (m Model) renderHelp() string {
	return `│ 1-4:Press button  d:Debug  q:Quit                    │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Max wake: %dns                                     │
│   Max process: %dns                                  │
`, m.stats.MaxWake.Nanoseconds(), m.stats.MaxProcess.Nanoseconds())
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "1", "2", "3", "4":
		button := int(key[0] - '1')
		m.lastPress = button
		if m.controls != nil {
			select {
			case m.controls.Presses <- ButtonPressMsg{Button: button}:
			default:
			}
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Running != nil {
		m.running = *msg.Running
	}
	if msg.Status != "" {
		m.status = msg.Status
	}
	if msg.SampleRate != 0 {
		m.busName = msg.Bus
		m.appName = msg.App
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
		m.frames = msg.Frames
		m.period = msg.Period
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
	if msg.LEDs != nil {
		m.leds = *msg.LEDs
	}
}

// StatusMsg updates TUI state. Nil and zero fields leave the current value.
type StatusMsg struct {
	Running *bool
	Status  string

	Bus        string
	App        string
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
	Period     time.Duration

	Stats *duplex.Stats
	LEDs  *[control.NumLEDs]bool
}

// Utility functions
func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}
