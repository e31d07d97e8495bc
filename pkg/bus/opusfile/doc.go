// ABOUTME: Package documentation for Ogg Opus capture
// ABOUTME: Needs libopus and libopusfile to build

// Package opusfile lets bus.OpenCapture read .opus files. Import it for
// its side effect:
//
//	import _ "github.com/Resonate-Protocol/duplex-go/pkg/bus/opusfile"
//
// Streams always decode at 48 kHz; FileCapture resamples them to the bus
// rate when needed.
package opusfile
