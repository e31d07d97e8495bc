// ABOUTME: Simulated serial audio bus driven by a manual tick or a clock
// ABOUTME: Feeds capture sources and render sinks one period at a time
package bus

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// SimConfig configures the simulated bus
type SimConfig struct {
	// Period is the wall-clock time between period boundaries.
	// Zero means the bus only advances when Tick is called.
	Period time.Duration

	Capture Capture // defaults to Silence
	Render  Render  // defaults to Discard
}

// Sim is a software bus. Each period it captures into the current RX block,
// renders the current TX block, then delivers EventNextBuffersNeeded.
type Sim struct {
	cfg SimConfig

	// tickMu serializes event delivery, standing in for interrupt context
	tickMu sync.Mutex

	mu          sync.Mutex
	busCfg      *Config
	handler     Handler
	current     *Buffers
	queued      bool
	running     bool
	periodWords int
	periods     uint64
	stop        chan struct{}
	done        chan struct{}
	doneOnce    *sync.Once
	loop        sync.WaitGroup
}

// NewSim creates a simulated bus
func NewSim(cfg SimConfig) *Sim {
	if cfg.Capture == nil {
		cfg.Capture = Silence{}
	}
	if cfg.Render == nil {
		cfg.Render = Discard{}
	}
	done := make(chan struct{})
	close(done)
	return &Sim{
		cfg:      cfg,
		done:     done,
		doneOnce: &sync.Once{},
	}
}

// Configure applies the bus configuration
func (s *Sim) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}
	s.busCfg = &cfg
	return nil
}

// Start begins streaming first
func (s *Sim) Start(first *Buffers, periodWords int, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busCfg == nil {
		return ErrNotConfigured
	}
	if s.running {
		return ErrRunning
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}
	if err := first.Check(periodWords); err != nil {
		return err
	}

	s.handler = h
	s.current = first
	s.periodWords = periodWords
	s.periods = 0
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.doneOnce = &sync.Once{}

	if s.cfg.Period > 0 {
		s.loop.Add(1)
		go s.run(s.cfg.Period, s.stop)
	}

	log.Printf("Sim bus started: %dHz, %d channels, %d-bit, %d words per period",
		s.busCfg.Format.SampleRate, s.busCfg.Format.Channels, s.busCfg.Format.BitDepth, periodWords)
	return nil
}

// SetNext queues next for the following period. Only one pair may be
// queued per period.
func (s *Sim) SetNext(next *Buffers) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if s.queued {
		return errors.New("buffer pair already queued for this period")
	}
	if err := next.Check(s.periodWords); err != nil {
		return err
	}
	s.current = next
	s.queued = true
	return nil
}

// Stop halts the bus. No event is delivered after Stop returns.
// Stop must not be called from the handler.
func (s *Sim) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.loop.Wait()

	// Wait for an in-flight Tick to finish delivering
	s.tickMu.Lock()
	s.tickMu.Unlock()

	s.finish()
	log.Printf("Sim bus stopped after %d periods", s.Periods())
	return nil
}

// Tick advances the bus by one period. It returns io.EOF once the capture
// source is exhausted, after which the bus is stopped.
func (s *Sim) Tick() error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cur := s.current
	h := s.handler
	format := s.busCfg.Format
	s.queued = false
	s.mu.Unlock()

	if err := s.cfg.Capture.Capture(cur.RX, format); err != nil {
		if errors.Is(err, io.EOF) {
			s.halt()
			return io.EOF
		}
		s.fault(h)
		return fmt.Errorf("capture failed: %w", err)
	}
	if err := s.cfg.Render.Render(cur.TX, format); err != nil {
		s.fault(h)
		return fmt.Errorf("render failed: %w", err)
	}

	s.mu.Lock()
	s.periods++
	s.mu.Unlock()

	h(EventNextBuffersNeeded)
	return nil
}

// Fault simulates a transfer error: the handler receives
// EventTransferStopped and the bus halts.
func (s *Sim) Fault() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	h := s.handler
	s.mu.Unlock()

	s.fault(h)
}

// Current returns the pair that will be transferred next period
func (s *Sim) Current() *Buffers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Periods returns the number of completed periods
func (s *Sim) Periods() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periods
}

// Done is closed when the bus stops, whether by Stop, a fault or the end
// of the capture stream
func (s *Sim) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// fault delivers EventTransferStopped and halts (must hold tickMu)
func (s *Sim) fault(h Handler) {
	h(EventTransferStopped)
	s.halt()
}

// halt marks the bus stopped from inside a tick (must hold tickMu)
func (s *Sim) halt() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stop)
	}
	s.mu.Unlock()
	s.finish()
}

func (s *Sim) finish() {
	s.mu.Lock()
	once, done := s.doneOnce, s.done
	s.mu.Unlock()
	once.Do(func() { close(done) })
}

// run clocks the bus until stopped
func (s *Sim) run(period time.Duration, stop <-chan struct{}) {
	defer s.loop.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, ErrNotRunning) {
					log.Printf("Sim bus error: %v", err)
				}
				return
			}
		}
	}
}

// Check reports whether b is a complete pair of periodWords-word blocks
func (b *Buffers) Check(periodWords int) error {
	if b == nil || b.RX == nil || b.TX == nil {
		return fmt.Errorf("%w: incomplete buffer pair", ErrInvalidConfig)
	}
	if periodWords <= 0 || len(b.RX.Words()) != periodWords || len(b.TX.Words()) != periodWords {
		return fmt.Errorf("%w: buffer pair does not hold %d words", ErrInvalidConfig, periodWords)
	}
	return nil
}
