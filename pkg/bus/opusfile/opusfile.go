// ABOUTME: Ogg Opus capture decoder backed by libopusfile
// ABOUTME: Registers .opus with bus.OpenCapture when the package is imported
package opusfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
)

// SampleRate is the rate libopusfile always decodes at
const SampleRate = 48000

// ErrNotOpus is returned when the stream has no OpusHead packet
var ErrNotOpus = errors.New("not an Ogg Opus stream")

const headPeek = 4096

func init() {
	bus.RegisterDecoder(".opus", func(r io.ReadSeeker) (bus.SampleReader, error) {
		return NewReader(r)
	})
}

// Reader decodes an Ogg Opus stream into interleaved float samples
type Reader struct {
	stream   *opus.Stream
	channels int
}

// NewReader reads the OpusHead for the channel count and opens the stream
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, headPeek)
	head, err := br.Peek(headPeek)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read Opus header: %w", err)
	}

	channels, err := headChannels(head)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(br)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus stream: %w", err)
	}
	return &Reader{stream: stream, channels: channels}, nil
}

// headChannels finds the OpusHead packet and returns its channel count
func headChannels(data []byte) (int, error) {
	i := bytes.Index(data, []byte("OpusHead"))
	if i < 0 || len(data) < i+19 {
		return 0, ErrNotOpus
	}
	channels := int(data[i+9])
	if channels == 0 {
		return 0, fmt.Errorf("%w: zero channels", ErrNotOpus)
	}
	return channels, nil
}

// SampleRate returns 48000
func (r *Reader) SampleRate() int { return SampleRate }

// Channels returns the channel count from the OpusHead
func (r *Reader) Channels() int { return r.channels }

// ReadSamples decodes whole frames into dst
func (r *Reader) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / r.channels
	if frames == 0 {
		return 0, nil
	}
	n, err := r.stream.ReadFloat32(dst[:frames*r.channels])
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n * r.channels, err
}

// Close frees the decoder. The underlying reader is left open.
func (r *Reader) Close() error {
	return r.stream.Close()
}
