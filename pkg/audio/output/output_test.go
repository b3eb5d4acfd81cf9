// ABOUTME: Audio output tests
// ABOUTME: Verifies Output implementations and the Sink adapter
package output

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// captureOutput records what a Sink writes
type captureOutput struct {
	opened  []audio.Format
	writes  [][]int32
	openErr error
}

func (c *captureOutput) Open(format audio.Format) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.opened = append(c.opened, format)
	return nil
}

func (c *captureOutput) Write(samples []int32) error {
	c.writes = append(c.writes, samples)
	return nil
}

func (c *captureOutput) Close() error { return nil }

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Null)(nil)
}

func TestSinkOpensOnFirstBuffer(t *testing.T) {
	out := &captureOutput{}
	sink := NewSink(out)

	format := audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}
	sink.AudioData(audio.Buffer{Samples: []int32{1, 2, 3, 4}, Format: format})
	sink.AudioData(audio.Buffer{Samples: []int32{5, 6}, Format: format})

	if len(out.opened) != 1 {
		t.Fatalf("expected one Open, got %d", len(out.opened))
	}
	if out.opened[0].SampleRate != 48000 || out.opened[0].Channels != 2 {
		t.Errorf("unexpected device format %+v", out.opened[0])
	}
	if len(out.writes) != 2 || len(out.writes[0]) != 4 {
		t.Errorf("unexpected writes %v", out.writes)
	}
}

func TestSinkRemixesMono(t *testing.T) {
	out := &captureOutput{}
	sink := NewSink(out)

	stereo := audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}
	mono := audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 1, BitDepth: 16}
	sink.AudioData(audio.Buffer{Samples: []int32{0, 0}, Format: stereo})
	sink.AudioData(audio.Buffer{Samples: []int32{7, 9}, Format: mono})

	got := out.writes[1]
	expected := []int32{7, 7, 9, 9}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], got[i])
		}
	}
}

func TestSinkResamples(t *testing.T) {
	out := &captureOutput{}
	sink := NewSink(out)

	sink.AudioData(audio.Buffer{Samples: []int32{0, 0}, Format: audio.Format{SampleRate: 48000, Channels: 1}})
	sink.AudioData(audio.Buffer{Samples: make([]int32, 240), Format: audio.Format{SampleRate: 24000, Channels: 1}})

	if n := len(out.writes[1]); n < 470 || n > 480 {
		t.Errorf("expected about 480 samples after 2x upsampling, got %d", n)
	}
}

func TestSinkOpenFailure(t *testing.T) {
	out := &captureOutput{openErr: errors.New("no device")}
	sink := NewSink(out)
	sink.AudioData(audio.Buffer{Samples: []int32{1}, Format: audio.Format{SampleRate: 48000, Channels: 1}})
	if len(out.writes) != 0 {
		t.Error("expected no writes when the device cannot be opened")
	}
}

func TestNullOutput(t *testing.T) {
	n := NewNull(false)
	if err := n.Write([]int32{1}); err == nil {
		t.Error("expected error before Open")
	}
	if err := n.Open(audio.Format{SampleRate: 48000, Channels: 2}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	n.Write(make([]int32, 960*2))
	if n.Frames() != 960 {
		t.Errorf("expected 960 frames, got %d", n.Frames())
	}
}

func TestApplyVolume(t *testing.T) {
	out := applyVolume([]int32{1000, -1000, audio.Max24Bit}, 50, false)
	if out[0] != 500 || out[1] != -500 {
		t.Errorf("unexpected scaled samples %v", out)
	}
	muted := applyVolume([]int32{1000}, 100, true)
	if muted[0] != 0 {
		t.Errorf("expected silence when muted, got %d", muted[0])
	}
}
