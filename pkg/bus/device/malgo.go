// ABOUTME: Full-duplex host audio device transport using malgo
// ABOUTME: Treats each miniaudio period callback as a bus period boundary
package device

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// Malgo runs the bus on the default host capture and playback devices.
// Pins and clock ratio are validated but have no effect on a host device.
// 24-bit samples travel as S32 with the sample in the upper 24 bits.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	cfg      *bus.Config

	// isr serializes callback delivery and guards handler
	isr      sync.Mutex
	handler  bus.Handler
	stopping bool

	current      atomic.Pointer[bus.Buffers]
	frames       int
	shortPeriods atomic.Uint64
}

// NewMalgo creates a host device transport
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Configure applies the bus configuration
func (m *Malgo) Configure(cfg bus.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return bus.ErrRunning
	}
	m.cfg = &cfg
	return nil
}

// Start opens the duplex device and begins streaming first
func (m *Malgo) Start(first *bus.Buffers, periodWords int, h bus.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg == nil {
		return bus.ErrNotConfigured
	}
	if m.device != nil {
		return bus.ErrRunning
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", bus.ErrInvalidConfig)
	}
	if err := first.Check(periodWords); err != nil {
		return err
	}

	f := m.cfg.Format
	m.frames = first.RX.Len() / f.Channels

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	format := malgo.FormatS16
	if f.BitDepth == 24 {
		format = malgo.FormatS32
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(f.Channels)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.frames)
	deviceConfig.Alsa.NoMMap = 1

	m.current.Store(first)
	m.isr.Lock()
	m.handler = h
	m.stopping = false
	m.isr.Unlock()

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: m.dataCallback,
		Stop: m.stopCallback,
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		m.clearHandler()
		return fmt.Errorf("failed to initialize duplex device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.clearHandler()
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.device = device

	log.Printf("Duplex device started: %dHz, %d channels, %d-bit (malgo/%s), %d frames per period",
		f.SampleRate, f.Channels, f.BitDepth, formatName(format), m.frames)
	return nil
}

// SetNext queues next for the following callback. Called from the handler.
func (m *Malgo) SetNext(next *bus.Buffers) error {
	if next == nil || next.RX == nil || next.TX == nil {
		return fmt.Errorf("%w: incomplete buffer pair", bus.ErrInvalidConfig)
	}
	m.current.Store(next)
	return nil
}

// Stop halts the device and releases the malgo context
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isr.Lock()
	m.stopping = true
	m.isr.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.clearHandler()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	if n := m.shortPeriods.Load(); n > 0 {
		log.Printf("Device delivered %d callbacks with a frame count other than %d", n, m.frames)
	}
	return nil
}

func (m *Malgo) clearHandler() {
	m.isr.Lock()
	m.handler = nil
	m.isr.Unlock()
}

// dataCallback is called by malgo once per device period
func (m *Malgo) dataCallback(pOutput, pInput []byte, frameCount uint32) {
	m.isr.Lock()
	defer m.isr.Unlock()

	if m.handler == nil {
		clear(pOutput)
		return
	}

	if int(frameCount) != m.frames {
		m.shortPeriods.Add(1)
	}

	cur := m.current.Load()
	if m.cfg.Format.BitDepth == 16 {
		readS16(cur.RX.Int16(), pInput)
		writeS16(pOutput, cur.TX.Int16())
	} else {
		readS32(cur.RX.Int32(), pInput)
		writeS32(pOutput, cur.TX.Int32())
	}

	m.handler(bus.EventNextBuffersNeeded)
}

// stopCallback fires when the device stops, including on our own Stop
func (m *Malgo) stopCallback() {
	m.isr.Lock()
	defer m.isr.Unlock()

	if m.stopping || m.handler == nil {
		return
	}
	m.handler(bus.EventTransferStopped)
	m.handler = nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
