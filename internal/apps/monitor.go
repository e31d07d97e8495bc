// ABOUTME: Input monitor app with a mute button
// ABOUTME: Button 0 toggles mute and LED 0 mirrors the unmuted state
package apps

import "github.com/Resonate-Protocol/duplex-go/pkg/control"

// Monitor copies input to output unless muted. Any dropout flashes LED 3
// until the next button press.
type Monitor struct {
	muted   bool
	alarmed bool
	out     outbox
}

// NewMonitor creates an unmuted monitor and lights LED 0
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.out.led(0, true)
	return m
}

func (m *Monitor) Process(frames, channels int, out, in []float32) {
	if m.muted {
		return
	}
	copy(out, in)
}

func (m *Monitor) HandleMessage(msg control.Message) {
	button, pressed, ok := msg.Button()
	if !ok || !pressed {
		return
	}
	if button == 0 {
		m.muted = !m.muted
		m.out.led(0, !m.muted)
	}
	if m.alarmed {
		m.alarmed = false
		m.out.led(3, false)
	}
}

func (m *Monitor) NextOutgoing() (control.Message, bool) { return m.out.pop() }

func (m *Monitor) OnDropout() {
	if !m.alarmed {
		m.alarmed = true
		m.out.led(3, true)
	}
}

// Muted reports whether output is muted
func (m *Monitor) Muted() bool { return m.muted }
