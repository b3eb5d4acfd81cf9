// ABOUTME: PCM audio decoder
// ABOUTME: Unpacks little-endian 16-bit and 24-bit PCM AUs to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bytesPerSample int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 16, 24:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{bytesPerSample: format.BitDepth / 8}, nil
}

// Decode converts PCM bytes to int32 samples. A trailing partial sample is
// ignored.
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	n := len(data) / d.bytesPerSample
	samples := make([]int32, n)

	if d.bytesPerSample == 3 {
		for i := range samples {
			samples[i] = audio.SampleFrom24Bit([3]byte(data[i*3 : i*3+3]))
		}
		return samples, nil
	}

	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
