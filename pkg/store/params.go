// ABOUTME: Stream-parameter header byte and per-codec AU timing
// ABOUTME: Packs content type, sample rate, SBR and channel flags into one byte
package store

import (
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
)

// ContentType is the codec id stored in the upper nibble of the header byte
type ContentType uint8

const (
	ContentMPEG ContentType = 0x0 // MPEG-1 Layer II
	ContentOpus ContentType = 0x1
	ContentPCM  ContentType = 0x2 // 16-bit little-endian PCM
	ContentAAC  ContentType = 0xF // AAC superframes, the primary variant
)

const (
	// AAC superframes are never shorter than this on air
	aacMinPayload = 110
	// Largest AAC superframe (5 AUs of up to 528 bytes each)
	aacMaxPayload = 2640
	aacAUMs       = 120
	opusAUMs      = 20
)

func (c ContentType) String() string {
	switch c {
	case ContentMPEG:
		return "mp2"
	case ContentOpus:
		return "opus"
	case ContentPCM:
		return "pcm"
	case ContentAAC:
		return "aac"
	default:
		return fmt.Sprintf("content(%#x)", uint8(c))
	}
}

// Params describes the stream an AU belongs to
type Params struct {
	Content    ContentType
	SampleRate int
	Channels   int
	SBR        bool
	// PS is kept in memory only; the header byte has no room for it
	PS bool
}

// Byte packs p into the header layout:
// bits[7:4] content type, bits[3:2] rate code, bit1 SBR, bit0 stereo.
func (p Params) Byte() byte {
	b := byte(p.Content&0x0F) << 4
	b |= rateCode(p.SampleRate) << 2
	if p.SBR {
		b |= 0x02
	}
	if p.Channels == 2 {
		b |= 0x01
	}
	return b
}

// ParseParams unpacks a header byte. Rate code 0 yields SampleRate 0.
func ParseParams(b byte) Params {
	p := Params{
		Content:  ContentType(b >> 4),
		SBR:      b&0x02 != 0,
		Channels: 1,
	}
	switch (b >> 2) & 0x03 {
	case 3:
		p.SampleRate = 48000
	case 2:
		p.SampleRate = 32000
	case 1:
		p.SampleRate = 24000
	}
	if b&0x01 != 0 {
		p.Channels = 2
	}
	return p
}

func rateCode(sampleRate int) byte {
	switch sampleRate {
	case 48000:
		return 3
	case 32000:
		return 2
	case 24000:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two AUs can share one decoder configuration
func (p Params) Equal(o Params) bool {
	return p.Content == o.Content && p.SampleRate == o.SampleRate &&
		p.Channels == o.Channels && p.SBR == o.SBR && p.PS == o.PS
}

// Format returns the decoder-facing audio format
func (p Params) Format() audio.Format {
	return audio.Format{
		Codec:      p.Content.String(),
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
		BitDepth:   16,
	}
}

// AUDurationMs returns the nominal playout duration of one AU in
// milliseconds. PCM has no fixed AU size, so its duration is measured from
// the payload length.
func (p Params) AUDurationMs(payloadLen int) int64 {
	switch p.Content {
	case ContentAAC:
		return aacAUMs
	case ContentMPEG:
		if p.SampleRate == 48000 {
			return 24
		}
		return 48
	case ContentOpus:
		return opusAUMs
	case ContentPCM:
		if p.SampleRate <= 0 || p.Channels <= 0 {
			return 0
		}
		frames := int64(payloadLen / (2 * p.Channels))
		return frames * 1000 / int64(p.SampleRate)
	default:
		return 0
	}
}

// MinPayload is the smallest payload a reader accepts for this stream
func (p Params) MinPayload() int {
	if p.Content == ContentAAC {
		return aacMinPayload
	}
	return 1
}

// MaxPayload is the largest AU the decoder accepts for this stream
func (p Params) MaxPayload() int {
	if p.Content == ContentAAC {
		return aacMaxPayload
	}
	return MaxPayloadSize
}

func (p Params) String() string {
	return fmt.Sprintf("%s %dHz %dch sbr=%v", p.Content, p.SampleRate, p.Channels, p.SBR)
}
