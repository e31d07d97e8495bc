// ABOUTME: Duplex engine package
// ABOUTME: Real-time double-buffered transfer and processing engine
// Package duplex implements the real-time double-buffered audio engine.
//
// Two buffer pairs (A and B) alternate between the bus and the processing
// thread. At every period boundary the transport calls the completion
// handler, which either hands the pair that just finished to the dispatcher
// and queues the other one, or, if the dispatcher is still busy with the
// previous period, records a dropout and repeats the active pair.
//
// The dispatcher runs on a dedicated OS thread. Each period it converts the
// capture buffer to floats, calls Processor.Process, converts the output
// back into the render buffer, and releases the pair.
//
// Example:
//
//	engine, err := duplex.New(duplex.Config{
//		Format:    audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
//		Transport: device.NewMalgo(),
//		Processor: duplex.Passthrough,
//	})
//	err = engine.Start(ctx)
//	err = engine.Wait()
package duplex
