// ABOUTME: Tests for codec bring-up adapters
// ABOUTME: Verifies retry counting and error wrapping
package codec

import (
	"errors"
	"testing"
)

func TestNop(t *testing.T) {
	var c Codec = Nop{}
	if err := c.Init(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRetry(t *testing.T) {
	errNoAck := errors.New("no ack from codec")

	tests := []struct {
		name      string
		failFirst int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, 3, 1, false},
		{"second try", 1, 3, 2, false},
		{"exhausted", 5, 3, 3, true},
		{"default attempts", 5, 0, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := Retry{
				Codec: Func(func() error {
					calls++
					if calls <= tt.failFirst {
						return errNoAck
					}
					return nil
				}),
				Attempts: tt.attempts,
			}

			err := c.Init()
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if tt.wantErr {
				if !errors.Is(err, errNoAck) {
					t.Errorf("expected wrapped codec error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
