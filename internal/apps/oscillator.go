// ABOUTME: Parabolic sine approximation oscillator
// ABOUTME: Cheap enough for tiny targets; writes the same tone to every channel
package apps

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
)

const (
	DefaultOscillatorFreq = 350.0
	DefaultOscillatorGain = 0.01
)

// Oscillator renders a quartic approximation of a sine wave. Phase runs
// over [-1, 3); the second half cycle reuses the first with flipped sign.
// Button 0 toggles the tone on and off, LED 0 shows it.
type Oscillator struct {
	gain   float32
	phase  float32
	dphase float32
	muted  bool
	out    outbox

	dropouts atomic.Uint64
}

// NewOscillator creates an oscillator at freq Hz
func NewOscillator(freq, gain float64, sampleRate int) *Oscillator {
	o := &Oscillator{
		gain:  float32(gain),
		phase: -1,
	}
	if sampleRate > 0 {
		o.dphase = float32(4 * freq / float64(sampleRate))
	}
	o.out.led(0, true)
	return o
}

// value returns the waveform at the current phase and advances it
func (o *Oscillator) value() float32 {
	x := o.phase
	sign := float32(1)
	if o.phase > 1 {
		x = o.phase - 2
		sign = -1
	}

	xSq := x * x
	xQu := xSq * xSq
	v := 0.2146*xQu - 1.214601836*xSq + 1

	o.phase += o.dphase
	if o.phase > 3 {
		o.phase -= 4
	}
	return v * sign
}

func (o *Oscillator) Process(frames, channels int, out, in []float32) {
	for i := 0; i < frames; i++ {
		v := o.gain * o.value()
		if o.muted {
			v = 0
		}
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = v
		}
	}
}

func (o *Oscillator) HandleMessage(m control.Message) {
	if m == control.Button0Down {
		o.muted = !o.muted
		o.out.led(0, !o.muted)
	}
}

func (o *Oscillator) NextOutgoing() (control.Message, bool) { return o.out.pop() }

// OnDropout counts missed deadlines
func (o *Oscillator) OnDropout() { o.dropouts.Add(1) }

// Dropouts returns the number of dropouts reported to the oscillator
func (o *Oscillator) Dropouts() uint64 { return o.dropouts.Load() }
