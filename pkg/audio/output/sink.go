// ABOUTME: Adapts an Output to decoded-buffer delivery from the player
// ABOUTME: Opens the device lazily and converts rate and channel count to match it
package output

import (
	"sync"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/resample"
	log "github.com/sirupsen/logrus"
)

// Sink feeds decoded buffers to an Output. The first buffer fixes the device
// format; later buffers in another format are converted to it.
type Sink struct {
	mu        sync.Mutex
	out       Output
	format    audio.Format
	opened    bool
	resampler *resample.Resampler
	fromRate  int
	log       *log.Entry
}

// NewSink wraps out
func NewSink(out Output) *Sink {
	return &Sink{
		out: out,
		log: log.WithField("component", "output"),
	}
}

// AudioData writes one decoded buffer, blocking until the device accepts it
func (s *Sink) AudioData(buf audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(buf.Samples) == 0 {
		return
	}

	if !s.opened {
		format := buf.Format
		format.BitDepth = 16
		if err := s.out.Open(format); err != nil {
			s.log.WithError(err).Error("failed to open audio output")
			return
		}
		s.format = format
		s.opened = true
	}

	samples := remix(buf.Samples, buf.Format.Channels, s.format.Channels)
	if rate := buf.Format.SampleRate; rate > 0 && rate != s.format.SampleRate {
		samples = s.resample(samples, rate)
	}

	if err := s.out.Write(samples); err != nil {
		s.log.WithError(err).Warn("audio write failed")
	}
}

func (s *Sink) resample(samples []int32, rate int) []int32 {
	if s.resampler == nil || s.fromRate != rate {
		s.resampler = resample.New(rate, s.format.SampleRate, s.format.Channels)
		s.fromRate = rate
		s.log.Infof("resampling %dHz -> %dHz", rate, s.format.SampleRate)
	}
	out := make([]int32, s.resampler.OutputSamplesNeeded(len(samples))+2*s.format.Channels)
	n := s.resampler.Resample(samples, out)
	return out[:n]
}

// Close closes the wrapped output
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return s.out.Close()
}

// remix converts interleaved samples between mono and stereo
func remix(samples []int32, from, to int) []int32 {
	switch {
	case from == to || from <= 0 || to <= 0:
		return samples
	case from == 1 && to == 2:
		out := make([]int32, len(samples)*2)
		for i, s := range samples {
			out[2*i], out[2*i+1] = s, s
		}
		return out
	case from == 2 && to == 1:
		out := make([]int32, len(samples)/2)
		for i := range out {
			out[i] = int32((int64(samples[2*i]) + int64(samples[2*i+1])) / 2)
		}
		return out
	default:
		return samples
	}
}
