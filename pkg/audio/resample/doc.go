// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts capture files to the bus sample rate
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and
// handles both upsampling and downsampling. State is carried across calls.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	consumed, produced := r.Resample(input, output)
package resample
