// ABOUTME: Serial audio bus transport interface definition
// ABOUTME: Common interface for hardware, device and simulated bus backends
package bus

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
)

var (
	ErrNotConfigured = errors.New("bus not configured")
	ErrNotRunning    = errors.New("bus not running")
	ErrRunning       = errors.New("bus already running")
	ErrInvalidConfig = errors.New("invalid bus configuration")
)

// Event is a notification delivered by the transport in interrupt context
type Event int

const (
	// EventNextBuffersNeeded fires once per period boundary; the handler must
	// queue exactly one buffer pair with SetNext before returning.
	EventNextBuffersNeeded Event = iota
	// EventTransferStopped reports that the transfer halted and cannot resume
	EventTransferStopped
)

func (e Event) String() string {
	switch e {
	case EventNextBuffersNeeded:
		return "next-buffers-needed"
	case EventTransferStopped:
		return "transfer-stopped"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Handler receives transport events. It runs in interrupt context: it must
// not block, and the transport never invokes it concurrently with itself.
type Handler func(ev Event)

// Buffers is one capture/render buffer pair
type Buffers struct {
	RX *audio.Block
	TX *audio.Block
}

// PinNotUsed marks an unconnected bus signal
const PinNotUsed uint8 = 0xFF

// Pins assigns the bus signals to GPIO pins
type Pins struct {
	SCK   uint8 // bit clock
	LRCK  uint8 // word select
	MCK   uint8 // master clock
	SDOUT uint8 // data out (render)
	SDIN  uint8 // data in (capture)
}

// DefaultPins is the wiring used by the reference board
var DefaultPins = Pins{
	SCK:   4,
	LRCK:  29,
	MCK:   PinNotUsed,
	SDOUT: 30,
	SDIN:  28,
}

// Config is handed to Transport.Configure before streaming starts
type Config struct {
	Pins   Pins
	Ratio  int // MCK/LRCK clock ratio
	Format audio.Format
}

var validRatios = map[int]bool{32: true, 48: true, 64: true, 96: true, 128: true, 192: true, 256: true, 384: true, 512: true}

// Validate checks pins, clock ratio and sample format
func (c Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !validRatios[c.Ratio] {
		return fmt.Errorf("%w: clock ratio %d", ErrInvalidConfig, c.Ratio)
	}
	if c.Pins.SCK == PinNotUsed || c.Pins.LRCK == PinNotUsed {
		return fmt.Errorf("%w: SCK and LRCK must be connected", ErrInvalidConfig)
	}
	if c.Pins.SDOUT == PinNotUsed && c.Pins.SDIN == PinNotUsed {
		return fmt.Errorf("%w: neither SDOUT nor SDIN connected", ErrInvalidConfig)
	}

	used := make(map[uint8]string)
	for name, pin := range map[string]uint8{
		"SCK": c.Pins.SCK, "LRCK": c.Pins.LRCK, "MCK": c.Pins.MCK,
		"SDOUT": c.Pins.SDOUT, "SDIN": c.Pins.SDIN,
	} {
		if pin == PinNotUsed {
			continue
		}
		if other, ok := used[pin]; ok {
			return fmt.Errorf("%w: pin %d assigned to both %s and %s", ErrInvalidConfig, pin, other, name)
		}
		used[pin] = name
	}
	return nil
}

// Transport moves buffer pairs between memory and the audio bus.
//
// After Start, the transport transfers first, then delivers
// EventNextBuffersNeeded at each period boundary. The pair queued by the
// handler via SetNext is transferred during the following period. Stop
// uninstalls the handler: no event is delivered once Stop has returned.
type Transport interface {
	// Configure applies pins, clocking and sample format
	Configure(cfg Config) error

	// Start begins transferring first. periodWords is the transfer size in 32-bit words.
	Start(first *Buffers, periodWords int, h Handler) error

	// SetNext queues the pair for the next period. Called from the handler.
	SetNext(next *Buffers) error

	// Stop halts the transfer and uninstalls the handler
	Stop() error
}
