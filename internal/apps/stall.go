// ABOUTME: Stall app that deliberately overruns the period
// ABOUTME: Used to exercise dropout detection on real hardware
package apps

import (
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
)

const (
	DefaultStallEvery = 100
	DefaultStallFor   = 50 * time.Millisecond
)

// Stall passes audio through and sleeps for a while every N periods.
// Holding button 1 stalls every period; LED 1 is lit while it is held.
type Stall struct {
	every  int
	sleep  time.Duration
	count  int
	forced bool
	out    outbox

	sleepFn func(time.Duration)
}

// NewStall creates a stall app. every <= 0 disables periodic stalls.
func NewStall(every int, sleep time.Duration) *Stall {
	return &Stall{
		every:   every,
		sleep:   sleep,
		sleepFn: time.Sleep,
	}
}

func (s *Stall) Process(frames, channels int, out, in []float32) {
	copy(out, in)

	s.count++
	if s.forced || (s.every > 0 && s.count%s.every == 0) {
		s.sleepFn(s.sleep)
	}
}

func (s *Stall) HandleMessage(m control.Message) {
	switch m {
	case control.Button1Down:
		s.forced = true
		s.out.led(1, true)
	case control.Button1Up:
		s.forced = false
		s.out.led(1, false)
	}
}

func (s *Stall) NextOutgoing() (control.Message, bool) { return s.out.pop() }
