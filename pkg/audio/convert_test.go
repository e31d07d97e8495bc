// ABOUTME: Tests for PCM/float conversion
// ABOUTME: Covers round trips, overflow policies and channel layouts
package audio

import (
	"errors"
	"math"
	"testing"
)

func newTestConverter(t *testing.T, bitDepth, channels int, layout Layout, overflow Overflow) *Converter {
	t.Helper()
	c, err := NewConverter(Format{SampleRate: 48000, Channels: channels, BitDepth: bitDepth}, layout, overflow)
	if err != nil {
		t.Fatalf("failed to create converter: %v", err)
	}
	return c
}

func TestNewConverterRejectsBadFormat(t *testing.T) {
	_, err := NewConverter(Format{SampleRate: 48000, Channels: 2, BitDepth: 12}, LayoutInterleaved, OverflowSaturate)
	if !errors.Is(err, ErrUnsupportedBitDepth) {
		t.Errorf("expected ErrUnsupportedBitDepth, got %v", err)
	}
}

func TestRoundTrip16BitExhaustive(t *testing.T) {
	c := newTestConverter(t, 16, 2, LayoutInterleaved, OverflowSaturate)

	// -32768 is below -full scale and saturates to -32767, one LSB away
	for x := int32(Min16Bit); x <= Max16Bit; x++ {
		got := c.FromFloat(c.ToFloat(x))
		if d := got - x; d > 1 || d < -1 {
			t.Fatalf("round trip of %d gave %d", x, got)
		}
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	c := newTestConverter(t, 24, 2, LayoutInterleaved, OverflowSaturate)

	check := func(x int32) {
		got := c.FromFloat(c.ToFloat(x))
		if d := got - x; d > 1 || d < -1 {
			t.Fatalf("round trip of %d gave %d", x, got)
		}
	}

	for x := int32(Min24Bit); x <= Max24Bit; x += 997 {
		check(x)
	}
	for _, x := range []int32{Min24Bit, Min24Bit + 1, -1, 0, 1, Max24Bit - 1, Max24Bit} {
		check(x)
	}
}

func TestToFloatScale(t *testing.T) {
	c16 := newTestConverter(t, 16, 2, LayoutInterleaved, OverflowSaturate)
	if got := c16.ToFloat(32767); got != 1.0 {
		t.Errorf("16-bit full scale: expected 1.0, got %v", got)
	}
	if got := c16.ToFloat(0); got != 0 {
		t.Errorf("16-bit zero: expected 0, got %v", got)
	}

	c24 := newTestConverter(t, 24, 2, LayoutInterleaved, OverflowSaturate)
	if got := c24.ToFloat(-8388607); got != -1.0 {
		t.Errorf("24-bit negative full scale: expected -1.0, got %v", got)
	}
}

func TestFromFloatSaturate(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		input    float32
		expected int32
	}{
		{"16 zero", 16, 0, 0},
		{"16 full scale", 16, 1.0, 32767},
		{"16 negative full scale", 16, -1.0, -32767},
		{"16 constant 1.5", 16, 1.5, 32767},
		{"16 constant -1.5", 16, -1.5, -32767},
		{"16 just over", 16, 1.0001, 32767},
		{"16 half", 16, 0.5, 16384}, // 16383.5 rounds away from zero
		{"16 NaN", 16, float32(math.NaN()), 0},
		{"16 +Inf", 16, float32(math.Inf(1)), 32767},
		{"16 -Inf", 16, float32(math.Inf(-1)), -32767},
		{"24 full scale", 24, 1.0, 8388607},
		{"24 constant 1.5", 24, 1.5, 8388607},
		{"24 constant -1.5", 24, -1.5, -8388607},
		{"24 large", 24, 1000, 8388607},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(t, tt.bitDepth, 2, LayoutInterleaved, OverflowSaturate)
			if got := c.FromFloat(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFromFloatWrap(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		input    float32
		expected int32
	}{
		{"16 in range", 16, 0.25, 8192},
		{"16 full scale", 16, 1.0, 32767},
		// round(1.5 * 32767) = 49151 -> 49151 - 65536
		{"16 constant 1.5", 16, 1.5, -16385},
		// round(-1.5 * 32767) = -49151 -> -49151 + 65536
		{"16 constant -1.5", 16, -1.5, 16385},
		{"16 NaN", 16, float32(math.NaN()), 0},
		{"16 +Inf", 16, float32(math.Inf(1)), 0},
		// round(1.5 * 8388607) = 12582911 -> 12582911 - 16777216
		{"24 constant 1.5", 24, 1.5, -4194305},
		{"24 constant -1.5", 24, -1.5, 4194305},
		{"24 full scale", 24, -1.0, -8388607},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConverter(t, tt.bitDepth, 2, LayoutInterleaved, OverflowWrap)
			if got := c.FromFloat(tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDecodeEncodeInterleaved(t *testing.T) {
	c := newTestConverter(t, 16, 2, LayoutInterleaved, OverflowSaturate)

	rx, err := NewBlock(16, 8)
	if err != nil {
		t.Fatalf("failed to create block: %v", err)
	}
	pcm := []int32{0, 32767, -32767, 16384, -16384, 1, -1, 100}
	for i, v := range pcm {
		rx.Set(i, v)
	}

	if c.Channels() != 2 || c.ScratchLen(4) != 8 {
		t.Fatalf("expected 2 processing channels and 8 scratch samples, got %d/%d", c.Channels(), c.ScratchLen(4))
	}

	in := make([]float32, 8)
	if err := c.Decode(in, rx); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, v := range pcm {
		if in[i] != c.ToFloat(v) {
			t.Errorf("sample %d: expected %v, got %v", i, c.ToFloat(v), in[i])
		}
	}

	tx, _ := NewBlock(16, 8)
	if err := c.Encode(tx, in); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	for i, v := range pcm {
		if tx.At(i) != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, tx.At(i))
		}
	}
}

func TestDecodeEncodeMonoDuplicate(t *testing.T) {
	c := newTestConverter(t, 24, 2, LayoutMonoDuplicate, OverflowSaturate)

	if c.Channels() != 1 {
		t.Fatalf("expected 1 processing channel, got %d", c.Channels())
	}

	rx, _ := NewBlock(24, 6) // 3 stereo frames
	// left carries the signal, right carries garbage that must be discarded
	rx.Set(0, 1000)
	rx.Set(1, 5)
	rx.Set(2, -2000)
	rx.Set(3, 6)
	rx.Set(4, Max24Bit)
	rx.Set(5, 7)

	in := make([]float32, 3)
	if err := c.Decode(in, rx); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := []float32{c.ToFloat(1000), c.ToFloat(-2000), 1.0}
	for i := range want {
		if in[i] != want[i] {
			t.Errorf("frame %d: expected %v, got %v", i, want[i], in[i])
		}
	}

	tx, _ := NewBlock(24, 6)
	if err := c.Encode(tx, []float32{0.5, -1.5, 0}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	expected := []int32{4194304, 4194304, -8388607, -8388607, 0, 0}
	for i, v := range expected {
		if tx.At(i) != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, tx.At(i))
		}
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	c := newTestConverter(t, 16, 2, LayoutInterleaved, OverflowSaturate)

	rx, _ := NewBlock(16, 8)
	if err := c.Decode(make([]float32, 7), rx); !errors.Is(err, ErrBlockSize) {
		t.Errorf("expected ErrBlockSize for short scratch, got %v", err)
	}

	odd, _ := NewBlock(16, 7)
	if err := c.Decode(make([]float32, 7), odd); !errors.Is(err, ErrBlockSize) {
		t.Errorf("expected ErrBlockSize for partial frame, got %v", err)
	}

	wide, _ := NewBlock(24, 8)
	if err := c.Encode(wide, make([]float32, 8)); !errors.Is(err, ErrBlockSize) {
		t.Errorf("expected ErrBlockSize for depth mismatch, got %v", err)
	}
}

func TestZeroCaptureScenario(t *testing.T) {
	const frames = 256
	c := newTestConverter(t, 16, 2, LayoutInterleaved, OverflowSaturate)

	rx, _ := NewBlock(16, frames*2)
	in := make([]float32, c.ScratchLen(frames))
	for i := range in {
		in[i] = 42 // must be overwritten
	}
	if err := c.Decode(in, rx); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, v := range in {
		if v != 0 {
			t.Fatalf("sample %d: expected 0.0, got %v", i, v)
		}
	}

	tx, _ := NewBlock(16, frames*2)
	for i := 0; i < tx.Len(); i++ {
		tx.Set(i, 123)
	}
	if err := c.Encode(tx, in); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	for i := 0; i < tx.Len(); i++ {
		if tx.At(i) != 0 {
			t.Fatalf("sample %d: expected 0, got %d", i, tx.At(i))
		}
	}
}
