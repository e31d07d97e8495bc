// ABOUTME: Double-buffered full-duplex audio engine
// ABOUTME: Wires the buffer pool, completion handler and dispatcher to a bus transport
package duplex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
	"github.com/Resonate-Protocol/duplex-go/pkg/codec"
)

const (
	DefaultSampleRate      = 48000
	DefaultChannels        = 2
	DefaultBitDepth        = 16
	DefaultFramesPerPeriod = 256
	DefaultRatio           = 256
)

// PipelinePeriods is the render delay in periods: samples captured in
// period n are processed during n+1 and leave the bus in n+2.
const PipelinePeriods = 2

// Config holds engine configuration
type Config struct {
	Format          audio.Format
	FramesPerPeriod int
	Layout          audio.Layout
	Overflow        audio.Overflow

	// Bus wiring; zero Pins means bus.DefaultPins
	Pins  bus.Pins
	Ratio int

	Transport bus.Transport // required
	Codec     codec.Codec   // defaults to codec.Nop
	Processor Processor     // required
}

// Stats is a snapshot of engine counters
type Stats struct {
	Periods     uint64 // completion events seen
	Processed   uint64 // periods the processor ran for
	Dropouts    uint64 // missed deadlines
	Active      PairID // pair queued to the bus
	LastWake    time.Duration
	MaxWake     time.Duration
	LastProcess time.Duration
	MaxProcess  time.Duration
}

// Engine streams buffer pairs between a bus transport and a Processor
type Engine struct {
	cfg       Config
	conv      *audio.Converter
	pool      *pool
	sync      *syncCore
	transport bus.Transport
	processor Processor
	epoch     time.Time

	// dispatcher scratch
	in  []float32
	out []float32

	periods     atomic.Uint64
	processed   atomic.Uint64
	dropouts    atomic.Uint64
	lastWake    atomic.Int64
	maxWake     atomic.Int64
	lastProcess atomic.Int64
	maxProcess  atomic.Int64

	mu             sync.Mutex
	started        bool
	stopping       atomic.Bool
	quit           chan struct{}
	dispatcherDone chan struct{}
	failed         chan struct{}
	failOnce       sync.Once
	err            error
	stopOnce       sync.Once
	done           chan struct{}
}

// New validates cfg and allocates the buffer pairs and scratch buffers.
// Nothing is allocated on the streaming path after New returns.
func New(cfg Config) (*Engine, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("%w: no transport", ErrInvalidConfig)
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("%w: no processor", ErrInvalidConfig)
	}
	if cfg.Format.SampleRate == 0 {
		cfg.Format.SampleRate = DefaultSampleRate
	}
	if cfg.Format.Channels == 0 {
		cfg.Format.Channels = DefaultChannels
	}
	if cfg.Format.BitDepth == 0 {
		cfg.Format.BitDepth = DefaultBitDepth
	}
	if cfg.FramesPerPeriod == 0 {
		cfg.FramesPerPeriod = DefaultFramesPerPeriod
	}
	if cfg.FramesPerPeriod < 0 {
		return nil, fmt.Errorf("%w: %d frames per period", ErrInvalidConfig, cfg.FramesPerPeriod)
	}
	if cfg.Pins == (bus.Pins{}) {
		cfg.Pins = bus.DefaultPins
	}
	if cfg.Ratio == 0 {
		cfg.Ratio = DefaultRatio
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Nop{}
	}

	conv, err := audio.NewConverter(cfg.Format, cfg.Layout, cfg.Overflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.busConfig().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p, err := newPool(cfg.Format, cfg.FramesPerPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	scratch := conv.ScratchLen(cfg.FramesPerPeriod)
	return &Engine{
		cfg:            cfg,
		conv:           conv,
		pool:           p,
		sync:           newSyncCore(),
		transport:      cfg.Transport,
		processor:      cfg.Processor,
		in:             make([]float32, scratch),
		out:            make([]float32, scratch),
		quit:           make(chan struct{}),
		dispatcherDone: make(chan struct{}),
		failed:         make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (c Config) busConfig() bus.Config {
	return bus.Config{Pins: c.Pins, Ratio: c.Ratio, Format: c.Format}
}

// Config returns the configuration with defaults applied
func (e *Engine) Config() Config { return e.cfg }

// PeriodDuration returns the wall-clock length of one period, the processing deadline
func (e *Engine) PeriodDuration() time.Duration {
	return time.Duration(e.cfg.FramesPerPeriod) * time.Second / time.Duration(e.cfg.Format.SampleRate)
}

// Start brings up the codec, configures the bus and begins streaming with
// pair A. Cancelling ctx stops the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return ErrStopped
	default:
	}
	if e.started {
		return ErrRunning
	}

	if err := e.cfg.Codec.Init(); err != nil {
		log.Printf("Codec bring-up failed: %v", err)
		return fmt.Errorf("%w: %w", ErrCodecInit, err)
	}

	if err := e.transport.Configure(e.cfg.busConfig()); err != nil {
		return fmt.Errorf("%w: configure: %w", ErrBusFault, err)
	}

	e.epoch = time.Now()
	e.sync.active.Store(uint32(PairA))
	go e.dispatch()

	if err := e.transport.Start(e.pool.pair(PairA), e.pool.periodWords, e.handleEvent); err != nil {
		close(e.quit)
		<-e.dispatcherDone
		close(e.done)
		return fmt.Errorf("%w: start: %w", ErrBusFault, err)
	}
	e.started = true

	go e.supervise(ctx)

	f := e.cfg.Format
	log.Printf("Engine started: %dHz, %d channels, %d-bit, %d frames per period (%v), layout=%s, overflow=%s",
		f.SampleRate, f.Channels, f.BitDepth, e.cfg.FramesPerPeriod, e.PeriodDuration(), e.cfg.Layout, e.cfg.Overflow)
	return nil
}

// supervise shuts the engine down on cancellation or a fatal error
func (e *Engine) supervise(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-e.failed:
		log.Printf("Engine failed: %v", e.err)
	case <-e.done:
		return
	}
	e.shutdown()
}

// Stop halts the bus, then stops the dispatcher at its wait point. It is
// safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()

	if !started {
		return nil
	}
	e.shutdown()
	return nil
}

func (e *Engine) shutdown() {
	e.stopOnce.Do(func() {
		e.stopping.Store(true)

		// No events are delivered once the transport has stopped
		if err := e.transport.Stop(); err != nil {
			log.Printf("Warning: transport stop error: %v", err)
		}

		close(e.quit)
		<-e.dispatcherDone

		s := e.Stats()
		log.Printf("Engine stopped: %d periods, %d processed, %d dropouts", s.Periods, s.Processed, s.Dropouts)
		close(e.done)
	})
}

// fail records the first fatal error. Safe from interrupt context.
func (e *Engine) fail(err error) {
	e.failOnce.Do(func() {
		e.err = err
		close(e.failed)
	})
}

// Done is closed once the engine has stopped
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the fatal error that stopped the engine, if any
func (e *Engine) Err() error {
	select {
	case <-e.failed:
		return e.err
	default:
		return nil
	}
}

// Wait blocks until the engine stops and returns the fatal error, if any.
// A stop by Stop or context cancellation returns nil.
func (e *Engine) Wait() error {
	<-e.done
	return e.Err()
}

// Stats returns a snapshot of engine counters
func (e *Engine) Stats() Stats {
	return Stats{
		Periods:     e.periods.Load(),
		Processed:   e.processed.Load(),
		Dropouts:    e.dropouts.Load(),
		Active:      e.sync.activePair(),
		LastWake:    time.Duration(e.lastWake.Load()),
		MaxWake:     time.Duration(e.maxWake.Load()),
		LastProcess: time.Duration(e.lastProcess.Load()),
		MaxProcess:  time.Duration(e.maxProcess.Load()),
	}
}

// IsFatal reports whether err is one of the engine's fatal conditions
func IsFatal(err error) bool {
	return errors.Is(err, ErrTransferStopped) || errors.Is(err, ErrBusFault) || errors.Is(err, ErrInvariant)
}

// now returns monotonic nanoseconds since Start
func (e *Engine) now() int64 {
	return int64(time.Since(e.epoch))
}
