// ABOUTME: Render-only host audio transport using oto
// ABOUTME: The player pulls periods through Read; capture is always silence
package device

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// otoContext is shared: oto allows one context per process
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat audio.Format
	otoErr    error
)

// Oto plays the render side of the bus on the default output device.
// A period boundary occurs each time the player has consumed one TX block.
// 16-bit buses play as S16LE, 24-bit buses as float32.
type Oto struct {
	mu     sync.Mutex
	cfg    *bus.Config
	player *oto.Player

	// isr serializes Read and guards handler
	isr     sync.Mutex
	handler bus.Handler
	current atomic.Pointer[bus.Buffers]
	period  []byte
	pos     int
}

// NewOto creates a render-only host transport
func NewOto() *Oto {
	return &Oto{}
}

// Configure applies the bus configuration
func (o *Oto) Configure(cfg bus.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return bus.ErrRunning
	}
	o.cfg = &cfg
	return nil
}

// Start creates the player and begins streaming first
func (o *Oto) Start(first *bus.Buffers, periodWords int, h bus.Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg == nil {
		return bus.ErrNotConfigured
	}
	if o.player != nil {
		return bus.ErrRunning
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", bus.ErrInvalidConfig)
	}
	if err := first.Check(periodWords); err != nil {
		return err
	}

	f := o.cfg.Format
	frames := first.TX.Len() / f.Channels
	ctx, err := sharedOtoContext(f, time.Duration(frames)*time.Second/time.Duration(f.SampleRate))
	if err != nil {
		return err
	}

	o.isr.Lock()
	o.handler = h
	o.current.Store(first)
	o.period = make([]byte, first.TX.Len()*otoSampleBytes(f))
	o.renderPeriod()
	o.isr.Unlock()

	o.player = ctx.NewPlayer(o)
	o.player.Play()

	log.Printf("Render device started: %dHz, %d channels, %d-bit (oto), %d frames per period",
		f.SampleRate, f.Channels, f.BitDepth, frames)
	return nil
}

// SetNext queues next for the following period. Called from the handler.
func (o *Oto) SetNext(next *bus.Buffers) error {
	if next == nil || next.RX == nil || next.TX == nil {
		return fmt.Errorf("%w: incomplete buffer pair", bus.ErrInvalidConfig)
	}
	o.current.Store(next)
	return nil
}

// Stop closes the player. The shared oto context stays alive.
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.isr.Lock()
	o.handler = nil
	o.isr.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: player close error: %v", err)
		}
		o.player = nil
	}
	return nil
}

// Read is called by the oto player to pull rendered bytes
func (o *Oto) Read(p []byte) (int, error) {
	o.isr.Lock()
	defer o.isr.Unlock()

	if o.handler == nil {
		clear(p)
		return len(p), nil
	}

	n := 0
	for n < len(p) {
		if o.pos == len(o.period) {
			// The current pair has been played; there is no capture side
			o.current.Load().RX.Zero()
			o.handler(bus.EventNextBuffersNeeded)
			if o.handler == nil {
				clear(p[n:])
				return len(p), nil
			}
			o.renderPeriod()
		}
		c := copy(p[n:], o.period[o.pos:])
		o.pos += c
		n += c
	}
	return n, nil
}

// renderPeriod encodes the current TX block into the period buffer (must hold isr)
func (o *Oto) renderPeriod() {
	tx := o.current.Load().TX
	if tx.BitDepth() == 16 {
		for i, s := range tx.Int16() {
			binary.LittleEndian.PutUint16(o.period[i*2:], uint16(s))
		}
	} else {
		for i, s := range tx.Int32() {
			binary.LittleEndian.PutUint32(o.period[i*4:], math.Float32bits(float32(s)/audio.Max24Bit))
		}
	}
	o.pos = 0
}

func otoSampleBytes(f audio.Format) int {
	if f.BitDepth == 16 {
		return 2
	}
	return 4
}

func sharedOtoContext(f audio.Format, buffer time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		format := oto.FormatSignedInt16LE
		if f.BitDepth == 24 {
			format = oto.FormatFloat32LE
		}
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       format,
			BufferSize:   buffer,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan
		otoCtx = ctx
		otoFormat = f
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if otoFormat != f {
		return nil, fmt.Errorf("%w: oto context already running at %+v", bus.ErrInvalidConfig, otoFormat)
	}
	return otoCtx, nil
}
