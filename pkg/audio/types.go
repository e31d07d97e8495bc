// ABOUTME: Audio type definitions
// ABOUTME: Defines bus sample formats, channel layouts and overflow policies
package audio

import "fmt"

const (
	// 16-bit audio range constants
	Max16Bit = 32767  // 2^15 - 1
	Min16Bit = -32768 // -2^15

	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes the PCM format carried by the serial audio bus
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int // 16, or 24 (transported in 32-bit words)
}

// Validate checks that the format can be carried by the bus
func (f Format) Validate() error {
	if _, err := FullScale(f.BitDepth); err != nil {
		return err
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedChannels, f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, f.SampleRate)
	}
	return nil
}

// WordBytes returns the size of one sample in bus memory.
// 24-bit samples occupy a full 32-bit word.
func (f Format) WordBytes() int {
	if f.BitDepth == 16 {
		return 2
	}
	return 4
}

// FullScale returns the maximum magnitude representable at the given bit depth
func FullScale(bitDepth int) (int32, error) {
	switch bitDepth {
	case 16:
		return Max16Bit, nil
	case 24:
		return Max24Bit, nil
	default:
		return 0, fmt.Errorf("%w: %d (supported: 16, 24)", ErrUnsupportedBitDepth, bitDepth)
	}
}

// Layout selects how bus channels map onto the processing buffers
type Layout int

const (
	// LayoutInterleaved hands every bus channel to the processing routine, interleaved
	LayoutInterleaved Layout = iota
	// LayoutMonoDuplicate captures channel 0 only and renders the mono output to every bus channel
	LayoutMonoDuplicate
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return "interleaved"
	case LayoutMonoDuplicate:
		return "mono"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses a layout name as printed by Layout.String
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "interleaved", "stereo":
		return LayoutInterleaved, nil
	case "mono":
		return LayoutMonoDuplicate, nil
	default:
		return 0, fmt.Errorf("unknown channel layout %q", s)
	}
}

// Overflow selects what float->PCM conversion does with |f| > 1.0
type Overflow int

const (
	// OverflowSaturate clamps to [-full scale, full scale]
	OverflowSaturate Overflow = iota
	// OverflowWrap keeps the low bit-depth bits, two's complement
	OverflowWrap
)

func (o Overflow) String() string {
	switch o {
	case OverflowSaturate:
		return "saturate"
	case OverflowWrap:
		return "wrap"
	default:
		return fmt.Sprintf("Overflow(%d)", int(o))
	}
}

// ParseOverflow parses an overflow policy name as printed by Overflow.String
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "saturate", "clamp":
		return OverflowSaturate, nil
	case "wrap":
		return OverflowWrap, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}
