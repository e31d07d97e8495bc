// ABOUTME: Tests for the completion handler, pool and dispatcher steps
// ABOUTME: Drives the handler directly against a recording transport
package duplex

import (
	"errors"
	"sync"
	"testing"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// recordingTransport records every pair queued by the handler
type recordingTransport struct {
	mu         sync.Mutex
	cfg        *bus.Config
	first      *bus.Buffers
	words      int
	queued     []*bus.Buffers
	setNextErr error
	startErr   error
	stops      int
}

func (r *recordingTransport) Configure(cfg bus.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = &cfg
	return nil
}

func (r *recordingTransport) Start(first *bus.Buffers, periodWords int, h bus.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.first = first
	r.words = periodWords
	return r.startErr
}

func (r *recordingTransport) SetNext(next *bus.Buffers) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, next)
	return r.setNextErr
}

func (r *recordingTransport) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *recordingTransport) lastQueued() *bus.Buffers {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) == 0 {
		return nil
	}
	return r.queued[len(r.queued)-1]
}

func newHandlerEngine(t *testing.T, tr bus.Transport, p Processor) *Engine {
	t.Helper()
	if p == nil {
		p = Passthrough
	}
	e, err := New(Config{Transport: tr, Processor: p})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func woken(e *Engine) bool {
	select {
	case <-e.sync.wake:
		return true
	default:
		return false
	}
}

func TestHandlerOwnershipAlternation(t *testing.T) {
	tr := &recordingTransport{}
	e := newHandlerEngine(t, tr, nil)

	prev := e.sync.activePair()
	for i := 1; i <= 8; i++ {
		e.sync.busy.Store(false)
		e.handleEvent(bus.EventNextBuffersNeeded)

		got := e.sync.activePair()
		if got == prev {
			t.Fatalf("event %d: active pair did not flip from %s", i, prev)
		}
		if len(tr.queued) != i {
			t.Fatalf("event %d: expected %d queued pairs, got %d", i, i, len(tr.queued))
		}
		if tr.lastQueued() != e.pool.pair(got) {
			t.Errorf("event %d: expected pair %s queued to the bus", i, got)
		}
		if !e.sync.busy.Load() {
			t.Errorf("event %d: expected busy to be set", i)
		}
		if !woken(e) {
			t.Errorf("event %d: expected wake signal", i)
		}
		prev = got
	}

	if e.sync.dropout.Load() {
		t.Error("unexpected dropout")
	}
	if s := e.Stats(); s.Periods != 8 || s.Dropouts != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestHandlerDropoutSuppressesAlternation(t *testing.T) {
	tr := &recordingTransport{}
	e := newHandlerEngine(t, tr, nil)

	e.handleEvent(bus.EventNextBuffersNeeded)
	woken(e)
	active := e.sync.activePair()

	// Dispatcher still holds the other pair
	e.handleEvent(bus.EventNextBuffersNeeded)

	if e.sync.activePair() != active {
		t.Errorf("active pair changed during dropout: %s -> %s", active, e.sync.activePair())
	}
	if !e.sync.dropout.Load() {
		t.Error("expected dropout flag")
	}
	if len(tr.queued) != 2 {
		t.Fatalf("expected exactly one pair queued per event, got %d", len(tr.queued))
	}
	if tr.lastQueued() != e.pool.pair(active) {
		t.Error("expected the active pair to be re-queued")
	}
	if woken(e) {
		t.Error("dropout event must not wake the dispatcher")
	}
	if s := e.Stats(); s.Dropouts != 1 {
		t.Errorf("expected 1 dropout, got %d", s.Dropouts)
	}
}

func TestHandlerTransferStopped(t *testing.T) {
	e := newHandlerEngine(t, &recordingTransport{}, nil)

	e.handleEvent(bus.EventTransferStopped)
	if !errors.Is(e.Err(), ErrTransferStopped) {
		t.Errorf("expected ErrTransferStopped, got %v", e.Err())
	}
	if !IsFatal(e.Err()) {
		t.Error("expected transfer stopped to be fatal")
	}
}

func TestHandlerTransferStoppedWhileStopping(t *testing.T) {
	e := newHandlerEngine(t, &recordingTransport{}, nil)

	e.stopping.Store(true)
	e.handleEvent(bus.EventTransferStopped)
	if e.Err() != nil {
		t.Errorf("expected no error during shutdown, got %v", e.Err())
	}
}

func TestHandlerSetNextFailure(t *testing.T) {
	tr := &recordingTransport{setNextErr: errors.New("dma busy")}
	e := newHandlerEngine(t, tr, nil)

	e.handleEvent(bus.EventNextBuffersNeeded)
	if !errors.Is(e.Err(), ErrBusFault) {
		t.Errorf("expected ErrBusFault, got %v", e.Err())
	}
}

func TestPoolSizing(t *testing.T) {
	tests := []struct {
		name     string
		format   audio.Format
		frames   int
		words    int
		channels int
	}{
		{"16-bit stereo", audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}, 256, 256, 2},
		{"24-bit stereo", audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, 256, 512, 2},
		{"16-bit mono", audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16}, 256, 128, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newPool(tt.format, tt.frames)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.periodWords != tt.words {
				t.Errorf("expected %d words per period, got %d", tt.words, p.periodWords)
			}
			for _, id := range []PairID{PairA, PairB} {
				pair := p.pair(id)
				if pair.RX.Len() != tt.frames*tt.channels || pair.TX.Len() != tt.frames*tt.channels {
					t.Errorf("pair %s has wrong length", id)
				}
			}
			if p.pair(PairA).RX == p.pair(PairB).RX {
				t.Error("pairs share capture memory")
			}
		})
	}
}

type misaligned struct{}

func (misaligned) Aligned(uintptr) bool { return false }

func TestCheckAligned(t *testing.T) {
	if err := checkAligned("pair A rx", misaligned{}); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}

	b, _ := audio.NewBlock(16, 2)
	if err := checkAligned("pair A rx", b); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPairID(t *testing.T) {
	if PairA.Other() != PairB || PairB.Other() != PairA {
		t.Error("Other does not alternate")
	}
	if PairA.String() != "A" || PairB.String() != "B" {
		t.Errorf("unexpected names %s/%s", PairA, PairB)
	}
}

func TestWakeSignalCoalesces(t *testing.T) {
	s := newSyncCore()
	s.give()
	s.give()

	<-s.wake
	select {
	case <-s.wake:
		t.Error("expected binary signal to coalesce gives")
	default:
	}
}

func TestRunPeriodInvariant(t *testing.T) {
	e := newHandlerEngine(t, &recordingTransport{}, nil)

	if err := e.runPeriod(); !errors.Is(err, ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestRunPeriodDropoutBeforeProcess(t *testing.T) {
	var order []string
	p := ProcessorFuncs{
		ProcessFunc: func(_, _ int, _, _ []float32) { order = append(order, "process") },
		DropoutFunc: func() { order = append(order, "dropout") },
	}
	e := newHandlerEngine(t, &recordingTransport{}, p)

	e.sync.busy.Store(true)
	e.sync.dropout.Store(true)
	if err := e.runPeriod(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "dropout" || order[1] != "process" {
		t.Errorf("expected dropout then process, got %v", order)
	}
	if e.sync.dropout.Load() || e.sync.busy.Load() {
		t.Error("expected dropout and busy to be cleared")
	}
}

func TestRunPeriodUsesSoftwarePair(t *testing.T) {
	e := newHandlerEngine(t, &recordingTransport{}, Passthrough)

	// Hardware owns B, so software processes A
	e.sync.active.Store(uint32(PairB))
	e.sync.busy.Store(true)
	e.pool.pair(PairA).RX.Set(0, 1000)
	e.pool.pair(PairB).RX.Set(0, 2000)

	if err := e.runPeriod(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.pool.pair(PairA).TX.At(0); got != 1000 {
		t.Errorf("expected pair A passthrough 1000, got %d", got)
	}
	if got := e.pool.pair(PairB).TX.At(0); got != 0 {
		t.Errorf("hardware-owned pair B was written: %d", got)
	}
}
