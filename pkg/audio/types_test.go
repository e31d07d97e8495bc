// ABOUTME: Tests for audio types
// ABOUTME: Tests format validation and policy parsing
package audio

import (
	"errors"
	"testing"
)

func TestFullScale(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		expected int32
		wantErr  bool
	}{
		{"16-bit", 16, 32767, false},
		{"24-bit", 24, 8388607, false},
		{"8-bit", 8, 0, true},
		{"32-bit", 32, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := FullScale(tt.bitDepth)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedBitDepth) {
					t.Errorf("expected ErrUnsupportedBitDepth, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fs != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, fs)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr error
	}{
		{"stereo 16", Format{SampleRate: 48000, Channels: 2, BitDepth: 16}, nil},
		{"mono 24", Format{SampleRate: 44100, Channels: 1, BitDepth: 24}, nil},
		{"bad depth", Format{SampleRate: 48000, Channels: 2, BitDepth: 20}, ErrUnsupportedBitDepth},
		{"no channels", Format{SampleRate: 48000, Channels: 0, BitDepth: 16}, ErrUnsupportedChannels},
		{"too many channels", Format{SampleRate: 48000, Channels: 6, BitDepth: 16}, ErrUnsupportedChannels},
		{"no rate", Format{Channels: 2, BitDepth: 16}, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWordBytes(t *testing.T) {
	if got := (Format{BitDepth: 16}).WordBytes(); got != 2 {
		t.Errorf("16-bit: expected 2 bytes, got %d", got)
	}
	if got := (Format{BitDepth: 24}).WordBytes(); got != 4 {
		t.Errorf("24-bit: expected 4 bytes, got %d", got)
	}
}

func TestParseLayout(t *testing.T) {
	for _, l := range []Layout{LayoutInterleaved, LayoutMonoDuplicate} {
		parsed, err := ParseLayout(l.String())
		if err != nil {
			t.Fatalf("ParseLayout(%q): %v", l.String(), err)
		}
		if parsed != l {
			t.Errorf("expected %v, got %v", l, parsed)
		}
	}

	if _, err := ParseLayout("surround"); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestParseOverflow(t *testing.T) {
	for _, o := range []Overflow{OverflowSaturate, OverflowWrap} {
		parsed, err := ParseOverflow(o.String())
		if err != nil {
			t.Fatalf("ParseOverflow(%q): %v", o.String(), err)
		}
		if parsed != o {
			t.Errorf("expected %v, got %v", o, parsed)
		}
	}

	if got, _ := ParseOverflow("clamp"); got != OverflowSaturate {
		t.Errorf("expected clamp alias for saturate, got %v", got)
	}
	if _, err := ParseOverflow("fold"); err == nil {
		t.Error("expected error for unknown overflow policy")
	}
}
