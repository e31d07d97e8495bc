// ABOUTME: Transfer completion handler, runs in the transport's interrupt context
// ABOUTME: Decides buffer ownership handoff and detects missed deadlines
package duplex

import (
	"fmt"

	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// handleEvent is installed as the transport's bus.Handler. It never blocks,
// never calls the processor and queues exactly one pair per period.
func (e *Engine) handleEvent(ev bus.Event) {
	switch ev {
	case bus.EventNextBuffersNeeded:
		e.periods.Add(1)

		var next PairID
		handoff := false
		if e.sync.busy.CompareAndSwap(false, true) {
			// Hand the pair that just completed to software
			next = e.sync.activePair().Other()
			e.sync.active.Store(uint32(next))
			handoff = true
		} else {
			// Deadline missed: software still holds the other pair.
			// Repeat the active pair rather than stall.
			next = e.sync.activePair()
			e.sync.dropout.Store(true)
			e.dropouts.Add(1)
		}

		if err := e.transport.SetNext(e.pool.pair(next)); err != nil && !e.stopping.Load() {
			e.fail(fmt.Errorf("%w: queue pair %s: %w", ErrBusFault, next, err))
		}

		if handoff {
			e.sync.givenAt.Store(e.now())
			e.sync.give()
		}

	case bus.EventTransferStopped:
		if !e.stopping.Load() {
			e.fail(ErrTransferStopped)
		}
	}
}
