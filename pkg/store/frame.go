// ABOUTME: Frame codec for the timeshift store
// ABOUTME: Encodes and validates sync-marker + length + payload records
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the stream-parameter header at offset 0
	HeaderSize = 1

	// SyncSize is the size of the frame sync marker
	SyncSize = 3

	// LengthSize is the size of the big-endian payload length field
	LengthSize = 2

	// FrameOverhead is the number of bytes a frame adds around its payload
	FrameOverhead = SyncSize + LengthSize

	// MaxPayloadSize is the largest payload a 16-bit length can describe
	MaxPayloadSize = 0xFFFF
)

// SyncMarker opens every frame ("DAB")
var SyncMarker = [SyncSize]byte{0x44, 0x41, 0x42}

var (
	// ErrNotYetAvailable means the bytes for the next frame have not been
	// committed yet. Retry later from the same position.
	ErrNotYetAvailable = errors.New("frame not yet available")

	// ErrSyncLost means the bytes at the read position are not a sync marker.
	ErrSyncLost = errors.New("sync marker mismatch")

	// ErrPayloadTooLarge is returned when a payload does not fit the length field.
	ErrPayloadTooLarge = errors.New("payload exceeds 65535 bytes")

	// ErrEmptyPayload is returned for zero-length payloads, which the format
	// reserves as "not yet written".
	ErrEmptyPayload = errors.New("empty payload")

	// ErrClosed is returned by operations on a closed writer or reader.
	ErrClosed = errors.New("store closed")
)

// EncodeFrame returns payload wrapped in a frame
func EncodeFrame(payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, FrameOverhead+len(payload)), payload)
}

// AppendFrame appends the framed payload to dst
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return dst, ErrEmptyPayload
	}
	if len(payload) > MaxPayloadSize {
		return dst, fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(payload))
	}

	dst = append(dst, SyncMarker[:]...)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...), nil
}

// ReadFrame reads the frame that starts at pos. Only bytes before end are
// considered readable. On success it returns the payload and the offset of the
// following frame. On any error the caller's position is unchanged and a retry
// from pos will re-read the same bytes.
func ReadFrame(r io.ReaderAt, pos, end int64, minPayload int) ([]byte, int64, error) {
	if minPayload < 1 {
		minPayload = 1
	}
	remaining := end - pos
	if remaining < int64(minPayload+FrameOverhead) {
		return nil, pos, ErrNotYetAvailable
	}

	var hdr [FrameOverhead]byte
	if n, err := r.ReadAt(hdr[:], pos); n < FrameOverhead {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, pos, fmt.Errorf("failed to read frame header at %d: %w", pos, err)
		}
		return nil, pos, ErrNotYetAvailable
	}

	if !matchSync(hdr[:SyncSize]) {
		return nil, pos, ErrSyncLost
	}

	length := int64(binary.BigEndian.Uint16(hdr[SyncSize:]))
	if length == 0 || remaining-FrameOverhead < length {
		return nil, pos, ErrNotYetAvailable
	}

	payload := make([]byte, length)
	if n, err := r.ReadAt(payload, pos+FrameOverhead); int64(n) < length {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, pos, fmt.Errorf("failed to read frame payload at %d: %w", pos, err)
		}
		return nil, pos, ErrNotYetAvailable
	}

	return payload, pos + FrameOverhead + length, nil
}

func matchSync(b []byte) bool {
	return len(b) >= SyncSize && b[0] == SyncMarker[0] && b[1] == SyncMarker[1] && b[2] == SyncMarker[2]
}
