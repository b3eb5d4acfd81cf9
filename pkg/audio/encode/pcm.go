// ABOUTME: PCM audio encoder
// ABOUTME: Packs int32 samples into 16-bit or 24-bit little-endian AUs
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth  int
	frameSize int
}

// NewPCM creates a new PCM encoder producing 20 ms AUs
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth:  format.BitDepth,
		frameSize: format.SampleRate / 50,
	}, nil
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	if e.bitDepth == 24 {
		out := make([]byte, 0, len(samples)*3)
		for _, sample := range samples {
			b := audio.SampleTo24Bit(sample)
			out = append(out, b[:]...)
		}
		return out, nil
	}

	out := make([]byte, 0, len(samples)*2)
	for _, sample := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(audio.SampleToInt16(sample)))
	}
	return out, nil
}

// FrameSize returns samples per channel in one AU
func (e *PCMEncoder) FrameSize() int {
	return e.frameSize
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
