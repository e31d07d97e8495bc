// ABOUTME: Codec bring-up interface invoked once before streaming starts
// ABOUTME: Provides function, no-op and retrying adapters
package codec

import (
	"fmt"
	"log"
	"time"
)

// Codec brings up the external audio codec. Init is called once, before the
// bus is configured.
type Codec interface {
	Init() error
}

// Func adapts a function to Codec
type Func func() error

func (f Func) Init() error { return f() }

// Nop is a codec that needs no bring-up (host devices, simulated buses)
type Nop struct{}

func (Nop) Init() error { return nil }

// Retry retries a codec's bring-up. It is the only place retries happen.
type Retry struct {
	Codec    Codec
	Attempts int           // total attempts, defaults to 3
	Delay    time.Duration // pause between attempts
}

// Init runs the wrapped Init until it succeeds or attempts run out
func (r Retry) Init() error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = r.Codec.Init(); err == nil {
			if i > 1 {
				log.Printf("Codec initialized on attempt %d", i)
			}
			return nil
		}
		log.Printf("Codec init attempt %d/%d failed: %v", i, attempts, err)
		if i < attempts && r.Delay > 0 {
			time.Sleep(r.Delay)
		}
	}
	return fmt.Errorf("codec init failed after %d attempts: %w", attempts, err)
}
