// ABOUTME: Passthrough app
// ABOUTME: Copies the captured period straight to the render buffer
package apps

import "github.com/Resonate-Protocol/duplex-go/pkg/control"

// Passthrough copies input to output and ignores control messages
type Passthrough struct{}

func (Passthrough) Process(frames, channels int, out, in []float32) { copy(out, in) }

func (Passthrough) HandleMessage(control.Message) {}

func (Passthrough) NextOutgoing() (control.Message, bool) { return control.None, false }
