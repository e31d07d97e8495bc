// ABOUTME: Processing app contract and its adapter to the duplex engine
// ABOUTME: Routes control messages in and out around each processed period
package control

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/duplex-go/pkg/duplex"
)

// App is a processing routine that talks to buttons and LEDs
type App interface {
	Process(frames, channels int, out, in []float32)

	// HandleMessage receives one inbound message, before the next Process
	HandleMessage(m Message)

	// NextOutgoing returns the next queued outbound message, if any
	NextOutgoing() (Message, bool)
}

// DropoutHandler is implemented by apps that want dropout notifications
type DropoutHandler interface {
	OnDropout()
}

// Host adapts an App to duplex.Processor. It is the single consumer of
// inbound and the single producer of outbound.
type Host struct {
	app      App
	inbound  *Queue
	outbound *Queue

	delivered atomic.Uint64
	sent      atomic.Uint64
	lost      atomic.Uint64
}

var _ duplex.Processor = (*Host)(nil)

// NewHost wires app to the message queues. Either queue may be nil.
func NewHost(app App, inbound, outbound *Queue) *Host {
	return &Host{
		app:      app,
		inbound:  inbound,
		outbound: outbound,
	}
}

// Process delivers pending inbound messages, runs the app, then forwards
// its outbound messages. A full outbound queue drops messages.
func (h *Host) Process(frames, channels int, out, in []float32) {
	if h.inbound != nil {
		for {
			m, ok := h.inbound.Pop()
			if !ok {
				break
			}
			h.app.HandleMessage(m)
			h.delivered.Add(1)
		}
	}

	h.app.Process(frames, channels, out, in)

	for {
		m, ok := h.app.NextOutgoing()
		if !ok {
			break
		}
		if h.outbound != nil && h.outbound.Push(m) {
			h.sent.Add(1)
		} else {
			h.lost.Add(1)
		}
	}
}

// OnDropout forwards the notification if the app handles dropouts
func (h *Host) OnDropout() {
	if d, ok := h.app.(DropoutHandler); ok {
		d.OnDropout()
	}
}

// HostStats counts routed messages
type HostStats struct {
	Delivered uint64 // inbound messages handed to the app
	Sent      uint64 // outbound messages queued
	Lost      uint64 // outbound messages dropped on a full queue
}

// Stats returns message counters
func (h *Host) Stats() HostStats {
	return HostStats{
		Delivered: h.delivered.Load(),
		Sent:      h.sent.Load(),
		Lost:      h.lost.Load(),
	}
}
