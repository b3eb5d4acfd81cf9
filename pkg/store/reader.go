// ABOUTME: Tailing reader and seeker for the timeshift store file
// ABOUTME: Reads committed frames, resynchronizes on sync markers, seeks by duration
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const scanChunk = 4096

// Position is the read side of the store: the number of AUs consumed and
// the byte offset of the next frame
type Position struct {
	AU     int64
	Offset int64
}

// SeekResult describes where a seek landed
type SeekResult struct {
	Position
	Estimate int64 // byte offset estimated before scanning
	Scanned  int64 // bytes skipped while looking for a sync marker
}

// Reader tails a store that a Writer is still appending to. It never reads
// past the writer's committed offset. A Reader is owned by one goroutine.
type Reader struct {
	f          *os.File
	src        Committer
	minPayload int
	pos        Position
	closed     bool
}

// OpenReader opens the store file at path for reading. src supplies the
// committed boundary.
func OpenReader(path string, src Committer) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	return &Reader{
		f:          f,
		src:        src,
		minPayload: 1,
		pos:        Position{Offset: HeaderSize},
	}, nil
}

// SetMinPayload sets the smallest payload Next will accept as a frame
func (r *Reader) SetMinPayload(n int) {
	r.minPayload = n
}

// Position returns the current read position
func (r *Reader) Position() Position {
	return r.pos
}

// Next returns the payload of the next committed frame and moves past it.
// It returns ErrNotYetAvailable when the writer has not committed the frame
// and ErrSyncLost when the read position is not on a frame boundary. In both
// cases the position is unchanged.
func (r *Reader) Next() ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	c := r.src.Committed()
	payload, next, err := ReadFrame(r.f, r.pos.Offset, c.Offset, r.minPayload)
	if err != nil {
		return nil, err
	}
	r.pos.Offset = next
	return payload, nil
}

// Advance counts one AU as consumed
func (r *Reader) Advance() {
	r.pos.AU++
}

// AtEnd reports whether every committed byte has been read
func (r *Reader) AtEnd() bool {
	return r.pos.Offset >= r.src.Committed().Offset
}

// Resync moves forward from the current position to the next valid frame
// boundary. When none is found the reader is parked at the committed end.
// It returns the number of bytes skipped.
func (r *Reader) Resync() (int64, error) {
	c := r.src.Committed()
	start := r.pos.Offset
	off, found, err := FindSync(r.f, start+1, c.Offset)
	if err != nil {
		return 0, err
	}
	if !found {
		off = c.Offset
	}
	r.pos.Offset = off
	return off - start, nil
}

// SeekToDuration moves the reader to the frame holding targetMs. auMs is the
// nominal AU duration. It reports false and leaves the position unchanged
// when targetMs is at or past the recorded duration.
func (r *Reader) SeekToDuration(targetMs, auMs int64) (SeekResult, bool, error) {
	c := r.src.Committed()
	if auMs <= 0 || c.AUs == 0 || targetMs < 0 || targetMs >= c.AUs*auMs {
		return SeekResult{}, false, nil
	}

	target := targetMs / auMs
	estimate := estimateOffset(c, target)
	res := SeekResult{Estimate: estimate}

	// An average-rate estimate can land inside the last frame; back off by
	// growing steps until a boundary turns up
	step := max(c.Offset/c.AUs, 1)
	from := estimate
	for {
		off, found, err := FindSync(r.f, from, c.Offset)
		if err != nil {
			return SeekResult{}, false, fmt.Errorf("failed to scan for sync from %d: %w", from, err)
		}
		if found {
			res.Position = Position{AU: target, Offset: off}
			res.Scanned += off - from
			break
		}
		if from <= HeaderSize {
			res.Position = Position{AU: c.AUs, Offset: c.Offset}
			res.Scanned += c.Offset - from
			break
		}
		res.Scanned += c.Offset - from
		from = max(from-step, HeaderSize)
		step *= 2
	}

	r.pos = res.Position
	return res, true, nil
}

// SkipTo moves the reader to an exact, previously recorded position
func (r *Reader) SkipTo(p Position) {
	r.pos = p
}

// Close closes the underlying file
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}

func estimateOffset(c Cursor, target int64) int64 {
	var est int64
	switch {
	case target == 0:
		est = HeaderSize
	case c.FrameSize > 0:
		est = HeaderSize + target*c.FrameSize
	default:
		est = (c.Offset / c.AUs) * target
	}
	return min(max(est, HeaderSize), c.Offset)
}

// FindSync scans forward from 'from' for the first offset before end that
// starts a well-formed frame: a sync marker and a length whose frame ends
// exactly at end or at another sync marker.
func FindSync(r io.ReaderAt, from, end int64) (int64, bool, error) {
	buf := make([]byte, scanChunk+SyncSize-1)
	for pos := from; pos+SyncSize <= end; {
		n := min(int64(len(buf)), end-pos)
		got, err := r.ReadAt(buf[:n], pos)
		if got < SyncSize {
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, false, err
			}
			return 0, false, nil
		}

		window := buf[:got]
		for i := 0; i+SyncSize <= len(window); {
			j := bytes.Index(window[i:], SyncMarker[:])
			if j < 0 {
				break
			}
			cand := pos + int64(i+j)
			ok, err := frameAt(r, cand, end)
			if err != nil {
				return 0, false, err
			}
			if ok {
				return cand, true, nil
			}
			i += j + 1
		}

		// keep the last SyncSize-1 bytes so a marker split across chunks is seen
		pos += int64(got - (SyncSize - 1))
	}
	return 0, false, nil
}

func frameAt(r io.ReaderAt, pos, end int64) (bool, error) {
	if pos+FrameOverhead > end {
		return false, nil
	}
	var hdr [FrameOverhead]byte
	if _, err := r.ReadAt(hdr[:], pos); err != nil {
		return false, ignoreEOF(err)
	}
	length := int64(binary.BigEndian.Uint16(hdr[SyncSize:]))
	if length == 0 {
		return false, nil
	}
	next := pos + FrameOverhead + length
	switch {
	case next == end:
		return true, nil
	case next+SyncSize > end:
		return false, nil
	}
	var sync [SyncSize]byte
	if _, err := r.ReadAt(sync[:], next); err != nil {
		return false, ignoreEOF(err)
	}
	return matchSync(sync[:]), nil
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
