// ABOUTME: Demo processing apps selectable by name
// ABOUTME: Each app runs inside the engine's dispatcher through control.Host
package apps

import (
	"fmt"
	"sort"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
)

// Constructor builds an app for the given sample rate
type Constructor func(sampleRate int) control.App

var registry = map[string]Constructor{
	"passthrough": func(int) control.App { return &Passthrough{} },
	"oscillator":  func(sr int) control.App { return NewOscillator(DefaultOscillatorFreq, DefaultOscillatorGain, sr) },
	"stall":       func(sr int) control.App { return NewStall(DefaultStallEvery, DefaultStallFor) },
	"monitor":     func(int) control.App { return NewMonitor() },
	"looper":      func(sr int) control.App { return NewLooper(sr) },
}

// New returns the named app
func New(name string, sampleRate int) (control.App, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %v)", name, Names())
	}
	return ctor(sampleRate), nil
}

// Names lists the registered apps in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// outbox is a fixed-size FIFO of outgoing messages. It never allocates,
// so apps can queue from the processing thread.
type outbox struct {
	buf  [16]control.Message
	head int
	n    int
}

func (o *outbox) push(m control.Message) {
	if o.n == len(o.buf) {
		// Drop the oldest; LED state converges on the latest message
		o.head = (o.head + 1) % len(o.buf)
		o.n--
	}
	o.buf[(o.head+o.n)%len(o.buf)] = m
	o.n++
}

func (o *outbox) pop() (control.Message, bool) {
	if o.n == 0 {
		return control.None, false
	}
	m := o.buf[o.head]
	o.head = (o.head + 1) % len(o.buf)
	o.n--
	return m, true
}

func (o *outbox) led(led int, on bool) {
	if m, err := control.LEDMessage(led, on); err == nil {
		o.push(m)
	}
}
