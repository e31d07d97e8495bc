// ABOUTME: WAV render sink for the simulated bus
// ABOUTME: Writes every rendered period to a PCM WAV file
package bus

import (
	"fmt"
	"io"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
)

// WAVRender writes rendered periods to a WAV stream at the bus format
type WAVRender struct {
	enc     *wav.Encoder
	buf     *goaudio.IntBuffer
	format  audio.Format
	closer  io.Closer
	samples int64
}

// NewWAVRender creates a sink writing to w. The WAV header is finalized by Close.
func NewWAVRender(w io.WriteSeeker, format audio.Format) (*WAVRender, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &WAVRender{
		enc:    wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, 1),
		format: format,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

// CreateWAVRender creates path and returns a sink writing to it
func CreateWAVRender(path string, format audio.Format) (*WAVRender, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create render file: %w", err)
	}
	r, err := NewWAVRender(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Render appends tx to the file
func (r *WAVRender) Render(tx *audio.Block, format audio.Format) error {
	if format != r.format {
		return fmt.Errorf("render format %+v does not match file format %+v", format, r.format)
	}

	n := tx.Len()
	if cap(r.buf.Data) < n {
		r.buf.Data = make([]int, n)
	}
	r.buf.Data = r.buf.Data[:n]
	for i := 0; i < n; i++ {
		r.buf.Data[i] = int(tx.At(i))
	}

	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	r.samples += int64(n)
	return nil
}

// Frames returns the number of frames written
func (r *WAVRender) Frames() int64 {
	return r.samples / int64(r.format.Channels)
}

// Close finalizes the WAV header and closes the file if CreateWAVRender opened it
func (r *WAVRender) Close() error {
	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	log.Printf("Render file closed: %d frames", r.Frames())
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
