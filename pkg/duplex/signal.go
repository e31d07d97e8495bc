// ABOUTME: Synchronization between the completion handler and the dispatcher
// ABOUTME: One binary wake signal plus atomic busy, dropout and ownership state
package duplex

import (
	"fmt"
	"sync/atomic"
)

// PairID names one of the two buffer pairs
type PairID uint32

const (
	PairA PairID = iota
	PairB
)

// Other returns the opposite pair
func (p PairID) Other() PairID {
	return p ^ 1
}

func (p PairID) String() string {
	switch p {
	case PairA:
		return "A"
	case PairB:
		return "B"
	default:
		return fmt.Sprintf("PairID(%d)", uint32(p))
	}
}

// syncCore is the only state shared between interrupt and thread context,
// apart from buffer memory guarded by the ownership protocol
type syncCore struct {
	// wake is a binary signal: capacity 1, gives coalesce
	wake chan struct{}

	busy    atomic.Bool
	dropout atomic.Bool
	active  atomic.Uint32 // PairID queued to hardware

	// givenAt is the monotonic time of the last give, in ns since engine epoch
	givenAt atomic.Int64
}

func newSyncCore() *syncCore {
	return &syncCore{wake: make(chan struct{}, 1)}
}

// give signals the dispatcher without blocking
func (s *syncCore) give() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *syncCore) activePair() PairID {
	return PairID(s.active.Load())
}
