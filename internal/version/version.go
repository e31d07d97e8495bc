// ABOUTME: Version information for duplex-go
// ABOUTME: Reported in control hello messages and mDNS TXT records
package version

const (
	Version      = "0.3.0"
	Product      = "Duplex Audio Engine"
	Manufacturer = "Resonate"
)
