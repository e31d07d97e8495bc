// ABOUTME: Serial audio bus package
// ABOUTME: Provides the Transport interface, the simulated bus and file capture
// Package bus moves buffer pairs between memory and a serial audio bus.
//
// A Transport is configured with pins, clock ratio and sample format, started
// with a first buffer pair, and from then on calls its Handler at every period
// boundary. The handler hands the transport the next pair with SetNext.
//
// Sim is a software bus clocked by Tick or a ticker, with pluggable Capture
// and Render. Host audio devices live in the device subpackage.
//
// Example:
//
//	sim := bus.NewSim(bus.SimConfig{Capture: bus.NewTone(440, 0.5)})
//	err := sim.Configure(bus.Config{Pins: bus.DefaultPins, Ratio: 256, Format: format})
//	err = sim.Start(first, words, handler)
//	err = sim.Tick()
package bus
