// ABOUTME: Tests for decoder lookup and the PCM decoder
// ABOUTME: Decodes AUs described by store params headers
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
)

func TestNewForStoreParams(t *testing.T) {
	tests := []struct {
		content store.ContentType
		wantErr bool
	}{
		{store.ContentPCM, false},
		{store.ContentOpus, false},
		{store.ContentAAC, true},
		{store.ContentMPEG, true},
	}

	for _, tt := range tests {
		t.Run(tt.content.String(), func(t *testing.T) {
			p := store.Params{Content: tt.content, SampleRate: 48000, Channels: 2}
			dec, err := New(p.Format())
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for codec without a built-in decoder")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			dec.Close()
		})
	}
}

func TestNewPCMRejects(t *testing.T) {
	bad := []audio.Format{
		{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16},
		{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 8},
		{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 32},
	}
	for _, f := range bad {
		if _, err := NewPCM(f); err == nil {
			t.Errorf("NewPCM(%+v) should fail", f)
		}
	}
}

func TestPCMDecode(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		data     []byte
		want     []int32
	}{
		{"16-bit", 16, []byte{0x34, 0x12, 0xFF, 0xFF}, []int32{0x123400, -256}},
		{"16-bit trailing byte", 16, []byte{0x00, 0x01, 0x7F}, []int32{0x10000}},
		{"24-bit", 24, []byte{0x56, 0x34, 0x12, 0x00, 0x00, 0x80}, []int32{0x123456, audio.Min24Bit}},
		{"empty", 16, nil, []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: tt.bitDepth})
			if err != nil {
				t.Fatalf("NewPCM failed: %v", err)
			}
			got, err := dec.Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewOpus(t *testing.T) {
	dec, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("NewOpus failed: %v", err)
	}
	defer dec.Close()

	if _, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 44100, Channels: 2}); err == nil {
		t.Error("expected error for a sample rate libopus does not support")
	}
	if _, err := NewOpus(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2}); err == nil {
		t.Error("expected error for wrong codec")
	}
}
