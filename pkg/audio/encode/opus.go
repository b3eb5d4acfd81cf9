// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20 ms blocks of int32 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const opusMaxPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pcm       []int16
	packet    []byte
}

// NewOpus creates a new Opus encoder producing 20 ms packets
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	frameSize := format.SampleRate / 50
	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: frameSize,
		pcm:       make([]int16, frameSize*format.Channels),
		packet:    make([]byte, opusMaxPacket),
	}, nil
}

// Encode converts exactly one frame of int32 samples to an Opus packet.
// Short input is padded with silence.
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	if len(samples) > len(e.pcm) {
		return nil, fmt.Errorf("opus frame too long: %d samples (max %d)", len(samples), len(e.pcm))
	}
	for i := range e.pcm {
		if i < len(samples) {
			e.pcm[i] = audio.SampleToInt16(samples[i])
		} else {
			e.pcm[i] = 0
		}
	}

	n, err := e.encoder.Encode(e.pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return append([]byte(nil), e.packet[:n]...), nil
}

// FrameSize returns samples per channel in one packet
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
