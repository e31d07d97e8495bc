// ABOUTME: Audio package error values
// ABOUTME: Sentinel errors for format and buffer configuration problems
package audio

import "errors"

var (
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrUnsupportedChannels = errors.New("unsupported channel count")
	ErrInvalidSampleRate   = errors.New("invalid sample rate")
	ErrBlockSize           = errors.New("block size mismatch")
)
