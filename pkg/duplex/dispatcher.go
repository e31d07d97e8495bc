// ABOUTME: Processing dispatcher, the engine's dedicated processing thread
// ABOUTME: Converts the software-owned pair, runs the processor and reports dropouts
package duplex

import (
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
)

// dispatch is the dispatcher loop. The wake signal and the stop request are
// its only blocking points.
func (e *Engine) dispatch() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.dispatcherDone)

	for {
		select {
		case <-e.quit:
			return
		case <-e.sync.wake:
		}

		if err := e.runPeriod(); err != nil {
			e.fail(err)
			return
		}
	}
}

// runPeriod processes the pair most recently released by the handler
func (e *Engine) runPeriod() error {
	woke := e.now()

	// Cleared before notifying so a miss during OnDropout is not lost
	if e.sync.dropout.Swap(false) {
		e.processor.OnDropout()
		e.logDropout()
	}

	if !e.sync.busy.Load() {
		return fmt.Errorf("%w: dispatcher woken without owning a buffer pair", ErrInvariant)
	}

	latency := woke - e.sync.givenAt.Load()
	e.lastWake.Store(latency)
	storeMax(&e.maxWake, latency)

	// The handler cannot flip active while busy is set
	pair := e.pool.pair(e.sync.activePair().Other())

	if err := e.conv.Decode(e.in, pair.RX); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	clear(e.out)
	e.processor.Process(e.pool.frames, e.conv.Channels(), e.out, e.in)
	if err := e.conv.Encode(pair.TX, e.out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	took := e.now() - woke
	e.lastProcess.Store(took)
	storeMax(&e.maxProcess, took)

	e.sync.busy.Store(false)
	e.processed.Add(1)
	return nil
}

// logDropout logs the first few dropouts, then every hundredth
func (e *Engine) logDropout() {
	n := e.dropouts.Load()
	if n <= 5 || n%100 == 0 {
		log.Printf("Dropout: processing missed its deadline (%d total)", n)
	}
}

func storeMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}
