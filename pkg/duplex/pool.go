// ABOUTME: The two statically owned buffer pairs
// ABOUTME: Allocated once, word aligned and never reallocated
package duplex

import (
	"fmt"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// transferAlign is the alignment the bus hardware requires of buffer memory
const transferAlign = 4

type aligner interface {
	Aligned(align uintptr) bool
}

// pool holds buffer pairs A and B
type pool struct {
	pairs       [2]bus.Buffers
	frames      int
	periodWords int
}

func newPool(format audio.Format, frames int) (*pool, error) {
	samples := frames * format.Channels
	p := &pool{frames: frames}

	for i := range p.pairs {
		rx, err := audio.NewBlock(format.BitDepth, samples)
		if err != nil {
			return nil, err
		}
		tx, err := audio.NewBlock(format.BitDepth, samples)
		if err != nil {
			return nil, err
		}
		p.pairs[i] = bus.Buffers{RX: rx, TX: tx}
	}

	for i := range p.pairs {
		id := PairID(i)
		if err := checkAligned(fmt.Sprintf("pair %s rx", id), p.pairs[i].RX); err != nil {
			return nil, err
		}
		if err := checkAligned(fmt.Sprintf("pair %s tx", id), p.pairs[i].TX); err != nil {
			return nil, err
		}
	}

	p.periodWords = len(p.pairs[0].RX.Words())
	return p, nil
}

func checkAligned(name string, b aligner) error {
	if !b.Aligned(transferAlign) {
		return fmt.Errorf("%w: %s", ErrMisaligned, name)
	}
	return nil
}

func (p *pool) pair(id PairID) *bus.Buffers {
	return &p.pairs[id]
}
