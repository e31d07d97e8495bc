// ABOUTME: Tests for the remote's argument helpers
// ABOUTME: Covers button list parsing and LED formatting
package main

import "testing"

func TestParseButtons(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"0", []int{0}, false},
		{"0, 2,3", []int{0, 2, 3}, false},
		{"x", nil, true},
	}

	for _, tt := range tests {
		got, err := parseButtons(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseButtons(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseButtons(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatLEDs(t *testing.T) {
	if got := formatLEDs([]bool{true, false}); got != "0:● 1:○" {
		t.Errorf("formatLEDs = %q", got)
	}
}
