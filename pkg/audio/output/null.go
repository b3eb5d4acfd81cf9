// ABOUTME: Output that discards audio at real-time speed
// ABOUTME: Used when no sound device is available or audio is disabled
package output

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// Null drops samples. When Paced is set, Write sleeps for the playout time of
// the samples so callers see the same back-pressure as a real device.
type Null struct {
	Paced  bool
	format audio.Format
	frames int64
}

// NewNull creates a discarding output
func NewNull(paced bool) *Null {
	return &Null{Paced: paced}
}

// Open records the format
func (n *Null) Open(format audio.Format) error {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("invalid output format: %dHz %dch", format.SampleRate, format.Channels)
	}
	n.format = format
	return nil
}

// Write discards samples
func (n *Null) Write(samples []int32) error {
	if n.format.Channels == 0 {
		return fmt.Errorf("output not initialized")
	}
	frames := len(samples) / n.format.Channels
	n.frames += int64(frames)
	if n.Paced {
		time.Sleep(time.Duration(frames) * time.Second / time.Duration(n.format.SampleRate))
	}
	return nil
}

// Frames returns the number of sample frames written so far
func (n *Null) Frames() int64 {
	return n.frames
}

// Close does nothing
func (n *Null) Close() error {
	return nil
}
