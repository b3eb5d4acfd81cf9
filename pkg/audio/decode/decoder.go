// ABOUTME: Decoder interface and codec lookup
// ABOUTME: Common interface for the AU decoders used by the playback engines
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// Decoder decodes one compressed AU to PCM int32 samples
type Decoder interface {
	// Decode converts one encoded AU to interleaved samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Factory builds a decoder for a stream format
type Factory func(format audio.Format) (Decoder, error)

// New returns a decoder for the codecs this package implements.
// Other codecs (aac, mp2) need a platform decoder passed in as a Factory.
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("no decoder for codec: %s", format.Codec)
	}
}
