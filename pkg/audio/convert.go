// ABOUTME: Fixed-point PCM to normalized float conversion and back
// ABOUTME: Parameterized by bit depth, channel layout and overflow policy
package audio

import (
	"fmt"
	"math"
)

// Converter maps bus PCM samples to normalized floats and back.
// It holds no mutable state and may be shared.
type Converter struct {
	format    Format
	layout    Layout
	overflow  Overflow
	fullScale float64
	modulus   float64 // 2^bitDepth, used by OverflowWrap
}

// NewConverter creates a converter for the given bus format
func NewConverter(format Format, layout Layout, overflow Overflow) (*Converter, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	fs, _ := FullScale(format.BitDepth)

	switch layout {
	case LayoutInterleaved, LayoutMonoDuplicate:
	default:
		return nil, fmt.Errorf("unknown channel layout %d", layout)
	}
	switch overflow {
	case OverflowSaturate, OverflowWrap:
	default:
		return nil, fmt.Errorf("unknown overflow policy %d", overflow)
	}

	return &Converter{
		format:    format,
		layout:    layout,
		overflow:  overflow,
		fullScale: float64(fs),
		modulus:   math.Ldexp(1, format.BitDepth),
	}, nil
}

// Format returns the bus format
func (c *Converter) Format() Format { return c.format }

// Layout returns the channel layout policy
func (c *Converter) Layout() Layout { return c.layout }

// Overflow returns the overflow policy
func (c *Converter) Overflow() Overflow { return c.overflow }

// FullScale returns the full-scale magnitude for the bus bit depth
func (c *Converter) FullScale() int32 { return int32(c.fullScale) }

// Channels returns the channel count seen by the processing routine
func (c *Converter) Channels() int {
	if c.layout == LayoutMonoDuplicate {
		return 1
	}
	return c.format.Channels
}

// ScratchLen returns the float buffer length needed for one period
func (c *Converter) ScratchLen(frames int) int {
	return frames * c.Channels()
}

// ToFloat converts one PCM sample: f = pcm / full scale
func (c *Converter) ToFloat(pcm int32) float32 {
	return float32(float64(pcm) / c.fullScale)
}

// FromFloat converts one float sample: pcm = round(f * full scale),
// then applies the overflow policy. NaN converts to 0 under both policies,
// and so do infinities under OverflowWrap.
func (c *Converter) FromFloat(f float32) int32 {
	x := float64(f)
	if math.IsNaN(x) {
		return 0
	}
	v := math.Round(x * c.fullScale)

	if c.overflow == OverflowSaturate {
		if v > c.fullScale {
			return int32(c.fullScale)
		}
		if v < -c.fullScale {
			return -int32(c.fullScale)
		}
		return int32(v)
	}

	if math.IsInf(v, 0) {
		return 0
	}
	shift := 64 - c.format.BitDepth
	m := int64(math.Mod(v, c.modulus))
	return int32((m << shift) >> shift)
}

// Decode converts a capture block into dst, honoring the channel layout.
// len(dst) must equal ScratchLen(src.Len() / bus channels).
func (c *Converter) Decode(dst []float32, src *Block) error {
	if err := c.checkSizes(len(dst), src); err != nil {
		return err
	}
	if src.BitDepth() == 16 {
		decodeSamples(c, dst, src.Int16())
	} else {
		decodeSamples(c, dst, src.Int32())
	}
	return nil
}

// Encode converts src into a render block, honoring the channel layout
// and the overflow policy.
func (c *Converter) Encode(dst *Block, src []float32) error {
	if err := c.checkSizes(len(src), dst); err != nil {
		return err
	}
	if dst.BitDepth() == 16 {
		encodeSamples(c, dst.Int16(), src)
	} else {
		encodeSamples(c, dst.Int32(), src)
	}
	return nil
}

func (c *Converter) checkSizes(scratch int, b *Block) error {
	if b.BitDepth() != c.format.BitDepth {
		return fmt.Errorf("%w: %d-bit block for %d-bit format", ErrBlockSize, b.BitDepth(), c.format.BitDepth)
	}
	if b.Len()%c.format.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrBlockSize, b.Len(), c.format.Channels)
	}
	frames := b.Len() / c.format.Channels
	if want := c.ScratchLen(frames); scratch != want {
		return fmt.Errorf("%w: scratch has %d samples, want %d", ErrBlockSize, scratch, want)
	}
	return nil
}

// stride is the bus sample distance between consecutive processing samples
func (c *Converter) stride() int {
	if c.layout == LayoutMonoDuplicate {
		return c.format.Channels
	}
	return 1
}

func decodeSamples[S int16 | int32](c *Converter, dst []float32, src []S) {
	step := c.stride()
	for i := range dst {
		dst[i] = c.ToFloat(int32(src[i*step]))
	}
}

func encodeSamples[S int16 | int32](c *Converter, dst []S, src []float32) {
	rep := c.stride()
	for i, f := range src {
		v := S(c.FromFloat(f))
		base := i * rep
		for k := 0; k < rep; k++ {
			dst[base+k] = v
		}
	}
}
