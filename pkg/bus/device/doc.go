// ABOUTME: Host audio device transports for the serial audio bus
// ABOUTME: Separate from package bus so the engine core builds without cgo
// Package device runs the bus on host audio hardware.
//
// Backends:
//   - Malgo: full-duplex capture and playback via miniaudio
//   - Oto: render-only playback; capture is always silence
//
// Both implement bus.Transport and need the platform audio headers to build.
//
// Example:
//
//	engine, err := duplex.New(duplex.Config{
//		Transport: device.NewMalgo(),
//		Processor: proc,
//	})
package device
