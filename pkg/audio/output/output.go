// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

import "github.com/Resonate-Protocol/timeshift-go/pkg/audio"

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for the given format
	Open(format audio.Format) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}
