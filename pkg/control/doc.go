// ABOUTME: Package documentation for control messaging
// ABOUTME: Buttons in, LEDs out, around the processing app

// Package control carries button and LED messages between the outside
// world and a processing app running inside the duplex engine.
//
// Messages travel on two single-producer single-consumer queues. The
// Bridge feeds the inbound queue from WebSocket clients and drains the
// outbound queue into LED updates. The Host delivers inbound messages to
// the App at the start of each period and collects its outbound messages
// afterwards, so the processing thread never blocks or allocates.
//
// Example:
//
//	in, _ := control.NewQueue(64)
//	out, _ := control.NewQueue(64)
//	host := control.NewHost(app, in, out)
//	bridge := control.NewBridge(control.BridgeConfig{Port: 8928}, in, out)
//	engine, _ := duplex.New(duplex.Config{Transport: bus, Processor: host})
package control
