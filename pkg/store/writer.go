// ABOUTME: Append-only writer for the timeshift store file
// ABOUTME: Commits whole frames and publishes the readable boundary atomically
package store

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
)

// Cursor is a committed snapshot of the store. Bytes before Offset hold
// exactly AUs complete frames.
type Cursor struct {
	AUs    int64
	Offset int64
	// FrameSize is the common frame size when every frame so far has had the
	// same size, 0 otherwise
	FrameSize int64
	// Params is the stream description written to the header byte
	Params Params
}

// Committer exposes the writer's committed boundary to a reader
type Committer interface {
	Committed() Cursor
}

// ParamsChange records that AUs from AU onward use Params
type ParamsChange struct {
	AU     int64
	Params Params
}

// WriterOptions configures a Writer
type WriterOptions struct {
	// SyncWrites fsyncs the file after every frame
	SyncWrites bool
}

// Writer appends frames to a store file. It is safe for one producer; the
// committed cursor may be read from any goroutine.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	opts   WriterOptions
	closed bool

	started   bool
	aus       int64
	offset    int64
	frameSize int64
	header    Params
	last      Params
	buf       []byte

	committed atomic.Pointer[Cursor]

	changesMu sync.RWMutex
	changes   []ParamsChange
}

// Create creates (or truncates) the store file at path
func Create(path string, opts WriterOptions) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create store file: %w", err)
	}

	w := &Writer{
		f:         f,
		path:      path,
		opts:      opts,
		frameSize: -1,
	}
	w.committed.Store(&Cursor{})
	return w, nil
}

// Path returns the store file path
func (w *Writer) Path() string {
	return w.path
}

// WriteAU appends one AU. The header byte is written with the first AU.
// The AU becomes visible to readers only after its whole frame has been
// written; on error nothing is committed and the next AU reuses the offset.
func (w *Writer) WriteAU(payload []byte, p Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	frame, err := AppendFrame(w.buf[:0], payload)
	if err != nil {
		return err
	}
	w.buf = frame

	if !w.started {
		if _, err := w.f.WriteAt([]byte{p.Byte()}, 0); err != nil {
			return fmt.Errorf("failed to write params header: %w", err)
		}
		w.started = true
		w.offset = HeaderSize
		w.header = p
		w.last = p
		w.recordChange(0, p)
	} else if !p.Equal(w.last) {
		w.last = p
		w.recordChange(w.aus, p)
	}

	if _, err := w.f.WriteAt(frame, w.offset); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.aus, err)
	}
	if w.opts.SyncWrites {
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync frame %d: %w", w.aus, err)
		}
	}

	size := int64(len(frame))
	switch {
	case w.frameSize < 0:
		w.frameSize = size
	case w.frameSize != size:
		w.frameSize = 0
	}
	w.offset += size
	w.aus++

	w.committed.Store(&Cursor{
		AUs:       w.aus,
		Offset:    w.offset,
		FrameSize: max(w.frameSize, 0),
		Params:    w.header,
	})
	return nil
}

// Committed returns the latest committed cursor
func (w *Writer) Committed() Cursor {
	return *w.committed.Load()
}

func (w *Writer) recordChange(au int64, p Params) {
	w.changesMu.Lock()
	defer w.changesMu.Unlock()
	if n := len(w.changes); n > 0 && w.changes[n-1].AU == au {
		w.changes[n-1].Params = p
		return
	}
	w.changes = append(w.changes, ParamsChange{AU: au, Params: p})
}

// ParamsAt returns the stream parameters in effect for AU au
func (w *Writer) ParamsAt(au int64) (Params, bool) {
	w.changesMu.RLock()
	defer w.changesMu.RUnlock()

	i := sort.Search(len(w.changes), func(i int) bool {
		return w.changes[i].AU > au
	})
	if i == 0 {
		return Params{}, false
	}
	return w.changes[i-1].Params, true
}

// ParamsChanges returns a copy of the parameter change log
func (w *Writer) ParamsChanges() []ParamsChange {
	w.changesMu.RLock()
	defer w.changesMu.RUnlock()
	return append([]ParamsChange(nil), w.changes...)
}

// Close closes the store file. Further writes fail with ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}
