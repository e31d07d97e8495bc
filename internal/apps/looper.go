// ABOUTME: Single-track looper app
// ABOUTME: Records input into a fixed buffer and plays it back on demand
package apps

import "github.com/Resonate-Protocol/duplex-go/pkg/control"

// LooperState is the looper's transport state
type LooperState int

const (
	LooperStopped LooperState = iota
	LooperRecording
	LooperPlaying
)

func (s LooperState) String() string {
	switch s {
	case LooperStopped:
		return "stopped"
	case LooperRecording:
		return "recording"
	case LooperPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// DefaultLoopSeconds is the loop buffer length
const DefaultLoopSeconds = 4

// Looper records on button 0 and plays on button 1. A second press of the
// same button stops. LED 0 shows recording and LED 1 shows playback.
// Input is always monitored.
type Looper struct {
	state  LooperState
	buf    []float32
	pos    int
	length int // recorded samples
	out    outbox
}

// NewLooper creates a looper holding DefaultLoopSeconds of stereo audio
func NewLooper(sampleRate int) *Looper {
	return newLooper(sampleRate * 2 * DefaultLoopSeconds)
}

func newLooper(samples int) *Looper {
	return &Looper{buf: make([]float32, samples)}
}

// State returns the current state
func (l *Looper) State() LooperState { return l.state }

func (l *Looper) Process(frames, channels int, out, in []float32) {
	copy(out, in)
	n := frames * channels

	switch l.state {
	case LooperRecording:
		for i := 0; i < n; i++ {
			l.buf[l.pos] = in[i]
			l.pos++
			if l.pos == len(l.buf) {
				l.length = l.pos
				l.transition(LooperStopped)
				return
			}
		}
	case LooperPlaying:
		if l.length == 0 {
			l.transition(LooperStopped)
			return
		}
		for i := 0; i < n; i++ {
			out[i] += l.buf[l.pos]
			l.pos++
			if l.pos == l.length {
				l.pos = 0
			}
		}
	}
}

func (l *Looper) HandleMessage(m control.Message) {
	switch m {
	case control.Button0Down:
		if l.state == LooperRecording {
			l.length = l.pos
			l.transition(LooperStopped)
		} else {
			l.transition(LooperRecording)
		}
	case control.Button1Down:
		if l.state == LooperPlaying {
			l.transition(LooperStopped)
		} else if l.state != LooperRecording {
			l.transition(LooperPlaying)
		}
	}
}

func (l *Looper) NextOutgoing() (control.Message, bool) { return l.out.pop() }

func (l *Looper) transition(next LooperState) {
	if next == l.state {
		return
	}
	l.out.led(0, next == LooperRecording)
	l.out.led(1, next == LooperPlaying)
	l.state = next
	l.pos = 0
}
