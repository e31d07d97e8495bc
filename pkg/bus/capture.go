// ABOUTME: File-backed capture sources for the simulated bus
// ABOUTME: Decodes WAV, MP3, FLAC, Ogg Vorbis and registered formats into bus PCM periods
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/audio/resample"
)

// ErrUnsupportedFile is returned for capture files with an unknown extension
var ErrUnsupportedFile = errors.New("unsupported capture file")

// SampleReader yields interleaved float samples in [-1, 1]. If it also
// implements io.Closer, FileCapture closes it before the file.
type SampleReader interface {
	SampleRate() int
	Channels() int
	// ReadSamples returns the number of values written; 0 with io.EOF ends the stream
	ReadSamples(dst []float32) (int, error)
}

// DecoderFunc opens a SampleReader over a capture file
type DecoderFunc func(r io.ReadSeeker) (SampleReader, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]DecoderFunc{}
)

// RegisterDecoder makes OpenCapture use d for files ending in ext (".opus").
// Decoders that need cgo register themselves from their own package.
func RegisterDecoder(ext string, d DecoderFunc) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[strings.ToLower(ext)] = d
}

func lookupDecoder(ext string) (DecoderFunc, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	d, ok := decoders[ext]
	return d, ok
}

// FileCapture feeds a decoded audio file into the bus one period at a time.
// Source channels are mapped onto bus channels; a mono file is duplicated.
// Files at another rate are resampled to the bus rate.
type FileCapture struct {
	path   string
	src    SampleReader
	reader SampleReader // src, or src resampled to the bus rate
	closer io.Closer
	conv   *audio.Converter
	buf    []float32
	ended  bool
}

// OpenCapture opens an audio file, picking the decoder by extension
// (.wav, .mp3, .flac, .ogg, or any registered with RegisterDecoder)
func OpenCapture(path string) (*FileCapture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	var src SampleReader
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		src, err = newWAVReader(f)
	case ".mp3":
		src, err = newMP3Reader(f)
	case ".flac":
		src, err = newFLACReader(f)
	case ".ogg", ".oga":
		src, err = newOggReader(f)
	default:
		if d, ok := lookupDecoder(ext); ok {
			src, err = d(f)
		} else {
			err = fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
		}
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Printf("Loaded capture file: %s (sample rate: %d Hz, channels: %d)",
		filepath.Base(path), src.SampleRate(), src.Channels())

	return &FileCapture{
		path:   path,
		src:    src,
		reader: src,
		closer: f,
	}, nil
}

// SampleRate returns the file's sample rate
func (c *FileCapture) SampleRate() int { return c.src.SampleRate() }

// Channels returns the file's channel count
func (c *FileCapture) Channels() int { return c.src.Channels() }

// Capture fills rx with the next period of the file. The final partial
// period is zero padded; the call after it returns io.EOF.
func (c *FileCapture) Capture(rx *audio.Block, format audio.Format) error {
	if c.ended {
		return io.EOF
	}

	if c.conv == nil || c.conv.Format() != format {
		conv, err := audio.NewConverter(format, audio.LayoutInterleaved, audio.OverflowSaturate)
		if err != nil {
			return err
		}
		c.conv = conv
		if c.reader.SampleRate() != format.SampleRate {
			log.Printf("Resampling %s from %d Hz to %d Hz",
				filepath.Base(c.path), c.src.SampleRate(), format.SampleRate)
			c.reader = newResamplingReader(c.src, format.SampleRate)
		}
	}

	srcCh := c.reader.Channels()
	frames := rx.Len() / format.Channels
	want := frames * srcCh
	if cap(c.buf) < want {
		c.buf = make([]float32, want)
	}
	c.buf = c.buf[:want]

	got := 0
	for got < want {
		n, err := c.reader.ReadSamples(c.buf[got:])
		got += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.ended = true
				break
			}
			return fmt.Errorf("failed to decode %s: %w", filepath.Base(c.path), err)
		}
		if n == 0 {
			c.ended = true
			break
		}
	}

	if got == 0 && c.ended {
		return io.EOF
	}
	clear(c.buf[got:])

	for i := 0; i < frames; i++ {
		for ch := 0; ch < format.Channels; ch++ {
			srcIdx := ch
			if srcIdx >= srcCh {
				srcIdx = srcCh - 1
			}
			rx.Set(i*format.Channels+ch, c.conv.FromFloat(c.buf[i*srcCh+srcIdx]))
		}
	}
	return nil
}

// Close releases the decoder and the file
func (c *FileCapture) Close() error {
	if rc, ok := c.src.(io.Closer); ok {
		if err := rc.Close(); err != nil {
			log.Printf("Warning: decoder close failed: %v", err)
		}
	}
	return c.closer.Close()
}

// resamplingReader converts a SampleReader to another rate
type resamplingReader struct {
	src SampleReader
	rs  *resample.Resampler
	in  []float32
	off int
	n   int
	eof bool
}

func newResamplingReader(src SampleReader, rate int) *resamplingReader {
	return &resamplingReader{
		src: src,
		rs:  resample.New(src.SampleRate(), rate, src.Channels()),
		in:  make([]float32, 1024*src.Channels()),
	}
}

func (r *resamplingReader) SampleRate() int { return r.rs.OutputRate() }
func (r *resamplingReader) Channels() int   { return r.src.Channels() }

func (r *resamplingReader) ReadSamples(dst []float32) (int, error) {
	produced := 0
	for produced < len(dst) {
		if r.off == r.n {
			if r.eof {
				break
			}
			n, err := r.src.ReadSamples(r.in)
			r.off, r.n = 0, n
			if err != nil {
				if !errors.Is(err, io.EOF) {
					return produced, err
				}
				r.eof = true
			}
			if n == 0 {
				r.eof = true
				continue
			}
		}

		consumed, p := r.rs.Resample(r.in[r.off:r.n], dst[produced:])
		r.off += consumed
		produced += p
		if consumed == 0 && p == 0 {
			break
		}
	}

	if produced == 0 && r.eof {
		return 0, io.EOF
	}
	return produced, nil
}

// wavReader wraps go-audio's WAV decoder
type wavReader struct {
	dec      *wav.Decoder
	intBuf   *goaudio.IntBuffer
	maxVal   float32
	channels int
	rate     int
}

func newWAVReader(r io.ReadSeeker) (*wavReader, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	var maxVal float32
	switch dec.BitDepth {
	case 8:
		maxVal = 128.0
	case 16:
		maxVal = 32768.0
	case 24:
		maxVal = 8388608.0
	case 32:
		maxVal = 2147483648.0
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", dec.BitDepth)
	}

	return &wavReader{
		dec:      dec,
		maxVal:   maxVal,
		channels: int(dec.NumChans),
		rate:     int(dec.SampleRate),
	}, nil
}

func (w *wavReader) SampleRate() int { return w.rate }
func (w *wavReader) Channels() int   { return w.channels }

func (w *wavReader) ReadSamples(dst []float32) (int, error) {
	if w.intBuf == nil || cap(w.intBuf.Data) < len(dst) {
		w.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: w.dec.Format(),
		}
	}
	w.intBuf.Data = w.intBuf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.intBuf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(w.intBuf.Data[i]) / w.maxVal
	}
	return n, nil
}

// mp3Reader wraps go-mp3, which always decodes to 16-bit stereo
type mp3Reader struct {
	dec *mp3.Decoder
	buf []byte
}

func newMP3Reader(r io.Reader) (*mp3Reader, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Reader{dec: dec}, nil
}

func (m *mp3Reader) SampleRate() int { return m.dec.SampleRate() }
func (m *mp3Reader) Channels() int   { return 2 }

func (m *mp3Reader) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(m.buf) < bytesNeeded {
		m.buf = make([]byte, bytesNeeded)
	}
	m.buf = m.buf[:bytesNeeded]

	n, err := m.dec.Read(m.buf)
	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(m.buf[i*2:]))) / 32768.0
	}
	if samples == 0 && err == nil {
		return 0, io.EOF
	}
	return samples, err
}

// flacReader wraps mewkiz/flac, buffering the unread tail of each frame
type flacReader struct {
	stream   *flac.Stream
	rate     int
	channels int
	scale    float32
	pending  []float32
}

func newFLACReader(r io.Reader) (*flacReader, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	info := stream.Info
	return &flacReader{
		stream:   stream,
		rate:     int(info.SampleRate),
		channels: int(info.NChannels),
		scale:    float32(int64(1) << (info.BitsPerSample - 1)),
	}, nil
}

func (f *flacReader) SampleRate() int { return f.rate }
func (f *flacReader) Channels() int   { return f.channels }

func (f *flacReader) ReadSamples(dst []float32) (int, error) {
	written := 0
	for written < len(dst) {
		if len(f.pending) == 0 {
			frame, err := f.stream.ParseNext()
			if err != nil {
				if written > 0 && errors.Is(err, io.EOF) {
					return written, nil
				}
				return written, err
			}
			blockSize := int(frame.BlockSize)
			f.pending = f.pending[:0]
			for i := 0; i < blockSize; i++ {
				for ch := 0; ch < f.channels; ch++ {
					f.pending = append(f.pending, float32(frame.Subframes[ch].Samples[i])/f.scale)
				}
			}
		}
		n := copy(dst[written:], f.pending)
		f.pending = f.pending[n:]
		written += n
	}
	return written, nil
}

// oggReader wraps jfreymuth/oggvorbis, which already yields floats
type oggReader struct {
	dec *oggvorbis.Reader
}

func newOggReader(r io.Reader) (*oggReader, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	return &oggReader{dec: dec}, nil
}

func (o *oggReader) SampleRate() int { return o.dec.SampleRate() }
func (o *oggReader) Channels() int   { return o.dec.Channels() }

func (o *oggReader) ReadSamples(dst []float32) (int, error) {
	// Read wants whole frames
	frames := len(dst) / o.dec.Channels()
	if frames == 0 {
		return 0, nil
	}
	n, err := o.dec.Read(dst[:frames*o.dec.Channels()])
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}
