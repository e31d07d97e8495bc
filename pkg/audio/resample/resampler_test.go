// ABOUTME: Tests for the streaming resampler
// ABOUTME: Covers identity, rate changes and chunked input
package resample

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	r := New(48000, 48000, 1)
	input := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	output := make([]float32, 8)

	consumed, produced := r.Resample(input, output)
	if consumed != 5 {
		t.Errorf("expected all input consumed, got %d", consumed)
	}
	// The newest frame waits for its successor
	if produced != 4 {
		t.Fatalf("expected 4 samples, got %d", produced)
	}
	for i := 0; i < produced; i++ {
		if output[i] != input[i] {
			t.Errorf("sample %d: got %f, want %f", i, output[i], input[i])
		}
	}
}

func TestUpsampleInterpolates(t *testing.T) {
	r := New(24000, 48000, 2)
	input := []float32{0, 0, 1, -1, 0, 0}
	output := make([]float32, 16)

	_, produced := r.Resample(input, output)
	want := []float32{0, 0, 0.5, -0.5, 1, -1, 0.5, -0.5}
	if produced != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), produced)
	}
	for i := range want {
		if output[i] != want[i] {
			t.Errorf("sample %d: got %f, want %f", i, output[i], want[i])
		}
	}
}

func TestDownsampleHalvesFrames(t *testing.T) {
	r := New(48000, 24000, 1)
	input := make([]float32, 100)
	for i := range input {
		input[i] = float32(i)
	}
	output := make([]float32, 100)

	_, produced := r.Resample(input, output)
	if produced != 50 {
		t.Fatalf("expected 50 samples, got %d", produced)
	}
	for i := 0; i < produced; i++ {
		if output[i] != float32(2*i) {
			t.Errorf("sample %d: got %f, want %d", i, output[i], 2*i)
		}
	}
}

func TestChunkedMatchesWhole(t *testing.T) {
	input := make([]float32, 441*2)
	for i := 0; i < 441; i++ {
		v := float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 44100))
		input[2*i] = v
		input[2*i+1] = -v
	}

	whole := New(44100, 48000, 2)
	wantOut := make([]float32, 1024)
	_, wantN := whole.Resample(input, wantOut)

	chunked := New(44100, 48000, 2)
	gotOut := make([]float32, 1024)
	gotN := 0
	for off := 0; off < len(input); {
		end := off + 14
		if end > len(input) {
			end = len(input)
		}
		consumed, produced := chunked.Resample(input[off:end], gotOut[gotN:])
		off += consumed
		gotN += produced
	}

	if gotN != wantN {
		t.Fatalf("chunked produced %d samples, whole produced %d", gotN, wantN)
	}
	for i := 0; i < wantN; i++ {
		if gotOut[i] != wantOut[i] {
			t.Fatalf("sample %d: chunked %f, whole %f", i, gotOut[i], wantOut[i])
		}
	}
}

func TestOutputFullKeepsInput(t *testing.T) {
	r := New(48000, 48000, 1)
	input := []float32{1, 2, 3, 4, 5, 6}
	output := make([]float32, 2)

	consumed, produced := r.Resample(input, output)
	if produced != 2 {
		t.Fatalf("expected 2 samples, got %d", produced)
	}
	if consumed >= len(input) {
		t.Errorf("expected leftover input, consumed %d", consumed)
	}

	rest := make([]float32, 8)
	_, n := r.Resample(input[consumed:], rest)
	if n != 3 || rest[0] != 3 || rest[2] != 5 {
		t.Errorf("continuation wrong: %v (n=%d)", rest[:n], n)
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(24000, 48000, 2)
	if got := r.OutputSamplesNeeded(24000 * 2); got != 48000*2 {
		t.Errorf("OutputSamplesNeeded = %d", got)
	}
	if got := r.InputSamplesNeeded(48000 * 2); got != 24000*2 {
		t.Errorf("InputSamplesNeeded = %d", got)
	}
}
