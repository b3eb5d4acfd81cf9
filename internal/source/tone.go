// ABOUTME: Sine test tone source
// ABOUTME: Generates a stereo 440Hz tone at 48kHz
package source

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

const (
	toneSampleRate = 48000
	toneChannels   = 2
)

// TestTone generates a sine tone
type TestTone struct {
	mu        sync.Mutex
	index     uint64
	frequency float64
}

// NewTestTone creates a 440Hz tone
func NewTestTone() *TestTone {
	return &TestTone{frequency: 440.0}
}

func (s *TestTone) Read(samples []int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / toneChannels
	for i := 0; i < frames; i++ {
		t := float64(s.index+uint64(i)) / toneSampleRate
		v := int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * 0.5)
		samples[i*2] = v
		samples[i*2+1] = v
	}
	s.index += uint64(frames)

	return frames * toneChannels, nil
}

func (s *TestTone) SampleRate() int { return toneSampleRate }
func (s *TestTone) Channels() int   { return toneChannels }
func (s *TestTone) Metadata() (string, string, string) {
	return "Test Tone", "Timeshift", "Reference Signal"
}
func (s *TestTone) Close() error { return nil }
