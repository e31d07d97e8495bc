// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Block and the PCM/float Converter
// Package audio provides the sample-level building blocks of the duplex engine.
//
// This package defines:
//   - Format: the PCM format carried by the serial audio bus (rate, channels, bit depth)
//   - Block: a word-aligned PCM buffer in the bus's native sample layout
//   - Converter: PCM <-> normalized float conversion
//
// Supported bit depths are 16 (full scale 32767) and 24 (full scale 8388607,
// transported in 32-bit words).
//
// Conversion follows f = pcm / full_scale and pcm = round(f * full_scale).
// Values outside [-1, 1] are handled by the Overflow policy: OverflowSaturate
// clamps to [-full_scale, full_scale], OverflowWrap keeps the low bits the way
// the integer encoding would.
//
// Example:
//
//	format := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
//	conv, err := audio.NewConverter(format, audio.LayoutInterleaved, audio.OverflowSaturate)
//	rx, _ := audio.NewBlock(24, 256*2)
//	in := make([]float32, conv.ScratchLen(256))
//	err = conv.Decode(in, rx)
package audio
