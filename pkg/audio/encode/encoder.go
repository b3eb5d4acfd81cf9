// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for the AU encoders used by the broadcast simulator
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// Encoder encodes PCM int32 samples to one AU
type Encoder interface {
	// Encode converts one AU worth of samples to encoded audio data
	Encode(samples []int32) ([]byte, error)

	// FrameSize is the number of samples per channel in one AU
	FrameSize() int

	// Close releases encoder resources
	Close() error
}

// New returns an encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("no encoder for codec: %s", format.Codec)
	}
}
