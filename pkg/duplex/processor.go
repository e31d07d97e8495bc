// ABOUTME: Processing routine interface
// ABOUTME: The pluggable per-period sample processor and its dropout hook
package duplex

// Processor is the user-supplied processing routine. It is held for the
// engine's lifetime and only ever called from the dispatcher thread.
type Processor interface {
	// Process fills out from in. Both hold frames*channels interleaved
	// samples in [-1, 1]; out is zeroed before the call. Process must return
	// within one period and must not block.
	Process(frames, channels int, out, in []float32)

	// OnDropout is called before the next Process after a missed deadline
	OnDropout()
}

// ProcessorFuncs adapts a pair of functions to Processor. Nil functions are skipped.
type ProcessorFuncs struct {
	ProcessFunc func(frames, channels int, out, in []float32)
	DropoutFunc func()
}

func (p ProcessorFuncs) Process(frames, channels int, out, in []float32) {
	if p.ProcessFunc != nil {
		p.ProcessFunc(frames, channels, out, in)
	}
}

func (p ProcessorFuncs) OnDropout() {
	if p.DropoutFunc != nil {
		p.DropoutFunc()
	}
}

// Passthrough copies input to output
var Passthrough = ProcessorFuncs{
	ProcessFunc: func(_, _ int, out, in []float32) { copy(out, in) },
}
