// ABOUTME: Lock-free single-producer single-consumer message ring
// ABOUTME: Safe to use from the processing thread; never blocks
package control

import (
	"fmt"
	"sync/atomic"
)

type slot struct {
	seq atomic.Uint64
	msg Message
}

// Queue is a bounded SPSC ring of messages. Exactly one goroutine may Push
// and exactly one may Pop.
type Queue struct {
	_    [64]byte
	head uint64 // consumer cursor

	_    [64]byte
	tail uint64 // producer cursor

	_    [64]byte
	mask uint64
	buf  []slot
}

// NewQueue creates a queue. size must be a power of two and at least 2;
// with one slot the filled marker of a lap equals the free marker of the next.
func NewQueue(size int) (*Queue, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("queue size %d is not a power of two of at least 2", size)
	}
	q := &Queue{
		mask: uint64(size - 1),
		buf:  make([]slot, size),
	}
	for i := range q.buf {
		q.buf[i].seq.Store(uint64(i))
	}
	return q, nil
}

// Push enqueues m. It returns false if the queue is full.
func (q *Queue) Push(m Message) bool {
	t := q.tail
	s := &q.buf[t&q.mask]
	if s.seq.Load() != t {
		return false
	}
	s.msg = m
	s.seq.Store(t + 1)
	q.tail = t + 1
	return true
}

// Pop dequeues the oldest message. ok is false if the queue is empty.
func (q *Queue) Pop() (m Message, ok bool) {
	h := q.head
	s := &q.buf[h&q.mask]
	if s.seq.Load() != h+1 {
		return None, false
	}
	m = s.msg
	s.seq.Store(h + uint64(len(q.buf)))
	q.head = h + 1
	return m, true
}

// Cap returns the queue capacity
func (q *Queue) Cap() int { return len(q.buf) }
