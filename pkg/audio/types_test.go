// ABOUTME: Tests for audio types and sample conversion
// ABOUTME: Covers buffer timing and the 16/24-bit sample helpers
package audio

import (
	"testing"
	"time"
)

func TestBufferTiming(t *testing.T) {
	tests := []struct {
		name     string
		samples  int
		format   Format
		frames   int
		duration time.Duration
	}{
		{"opus AU stereo", 1920, Format{SampleRate: 48000, Channels: 2}, 960, 20 * time.Millisecond},
		{"mp2 AU 24k mono", 1152, Format{SampleRate: 24000, Channels: 1}, 1152, 48 * time.Millisecond},
		{"no channels", 100, Format{SampleRate: 48000}, 0, 0},
		{"no rate", 100, Format{Channels: 2}, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Buffer{Samples: make([]int32, tt.samples), Format: tt.format}
			if got := b.Frames(); got != tt.frames {
				t.Errorf("Frames() = %d, want %d", got, tt.frames)
			}
			if got := b.Duration(); got != tt.duration {
				t.Errorf("Duration() = %v, want %v", got, tt.duration)
			}
		})
	}
}

func TestInt16Conversion(t *testing.T) {
	tests := []struct {
		in  int16
		out int32
	}{
		{0, 0},
		{1, 256},
		{-1, -256},
		{32767, 8388352},
		{-32768, Min24Bit},
	}

	for _, tt := range tests {
		if got := SampleFromInt16(tt.in); got != tt.out {
			t.Errorf("SampleFromInt16(%d) = %d, want %d", tt.in, got, tt.out)
		}
		if back := SampleToInt16(tt.out); back != tt.in {
			t.Errorf("SampleToInt16(%d) = %d, want %d", tt.out, back, tt.in)
		}
	}
}

func TestPacked24Bit(t *testing.T) {
	tests := []struct {
		sample int32
		packed [3]byte
	}{
		{0, [3]byte{0, 0, 0}},
		{0x123456, [3]byte{0x56, 0x34, 0x12}},
		{Max24Bit, [3]byte{0xFF, 0xFF, 0x7F}},
		{Min24Bit, [3]byte{0x00, 0x00, 0x80}},
		{-1, [3]byte{0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		if got := SampleTo24Bit(tt.sample); got != tt.packed {
			t.Errorf("SampleTo24Bit(%d) = %x, want %x", tt.sample, got, tt.packed)
		}
		if got := SampleFrom24Bit(tt.packed); got != tt.sample {
			t.Errorf("SampleFrom24Bit(%x) = %d, want %d", tt.packed, got, tt.sample)
		}
	}
}
