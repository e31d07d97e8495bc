// ABOUTME: Capture sources and render sinks for software bus backends
// ABOUTME: Provides silence, test tone and function adapters
package bus

import (
	"errors"
	"io"
	"math"
	"sync"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
)

// Capture produces the samples the bus receives on SDIN
type Capture interface {
	// Capture fills rx with one period of samples. io.EOF ends the stream.
	Capture(rx *audio.Block, format audio.Format) error
}

// Render consumes the samples the bus sends on SDOUT
type Render interface {
	// Render consumes one period of samples from tx
	Render(tx *audio.Block, format audio.Format) error
}

// CaptureFunc adapts a function to Capture
type CaptureFunc func(rx *audio.Block, format audio.Format) error

func (f CaptureFunc) Capture(rx *audio.Block, format audio.Format) error { return f(rx, format) }

// RenderFunc adapts a function to Render
type RenderFunc func(tx *audio.Block, format audio.Format) error

func (f RenderFunc) Render(tx *audio.Block, format audio.Format) error { return f(tx, format) }

// Silence captures zeros
type Silence struct{}

func (Silence) Capture(rx *audio.Block, _ audio.Format) error {
	rx.Zero()
	return nil
}

// TailCapture follows a capture source with a fixed number of silent
// periods once it ends, so the periods still in flight reach the render side
type TailCapture struct {
	src       Capture
	remaining int
	ended     bool
}

// Tail wraps src to capture periods of silence after its io.EOF
func Tail(src Capture, periods int) *TailCapture {
	return &TailCapture{src: src, remaining: periods}
}

func (t *TailCapture) Capture(rx *audio.Block, format audio.Format) error {
	if !t.ended {
		err := t.src.Capture(rx, format)
		if !errors.Is(err, io.EOF) {
			return err
		}
		t.ended = true
	}
	if t.remaining == 0 {
		return io.EOF
	}
	t.remaining--
	rx.Zero()
	return nil
}

// Discard drops rendered samples
type Discard struct{}

func (Discard) Render(*audio.Block, audio.Format) error { return nil }

// ToneSource generates a sine wave on every capture channel
type ToneSource struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	amplitude   float64
}

// NewTone creates a sine capture source. amplitude is relative to full scale.
func NewTone(frequency, amplitude float64) *ToneSource {
	if frequency == 0 {
		frequency = 440.0 // A4 note
	}
	if amplitude == 0 {
		amplitude = 0.5
	}
	return &ToneSource{
		frequency: frequency,
		amplitude: amplitude,
	}
}

func (s *ToneSource) Capture(rx *audio.Block, format audio.Format) error {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	fullScale, err := audio.FullScale(format.BitDepth)
	if err != nil {
		return err
	}

	frames := rx.Len() / format.Channels
	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(format.SampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)
		pcmValue := int32(math.Round(sample * s.amplitude * float64(fullScale)))

		for ch := 0; ch < format.Channels; ch++ {
			rx.Set(i*format.Channels+ch, pcmValue)
		}
	}

	s.sampleIndex += uint64(frames)
	return nil
}
