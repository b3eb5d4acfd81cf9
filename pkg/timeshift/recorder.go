// ABOUTME: Producer side of a timeshift session
// ABOUTME: Commits AUs to the store, persists metadata and detects skip points
package timeshift

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	log "github.com/sirupsen/logrus"
)

// Recorder receives the live stream. Audio and metadata calls are
// serialized, so every metadata entry sees a consistent (AU, offset) pair.
// Write errors are logged and the affected update is dropped.
type Recorder struct {
	mu       sync.Mutex
	w        *store.Writer
	blobs    metadata.BlobStore
	detector *skip.Detector
	items    []skip.Item
	maxItems int
	visual   string // most recent visual blob

	textuals metadata.Index
	visuals  metadata.Index
	auMs     atomic.Int64

	listeners *listenerSet[Listener]
	onCommit  func()
	metrics   *metrics.Metrics
	log       *log.Entry
}

func newRecorder(w *store.Writer, blobs metadata.BlobStore, cfg Config, listeners *listenerSet[Listener], m *metrics.Metrics) *Recorder {
	return &Recorder{
		w:         w,
		blobs:     blobs,
		detector:  skip.NewDetector(cfg.SkipFilter),
		maxItems:  cfg.MaxSkipItems,
		listeners: listeners,
		metrics:   m,
		log:       log.WithField("component", "recorder"),
	}
}

// WriteAudio appends one AU
func (r *Recorder) WriteAudio(payload []byte, p store.Params) {
	if !r.writeAudio(payload, p) {
		return
	}
	if r.onCommit != nil {
		r.onCommit()
	}
}

func (r *Recorder) writeAudio(payload []byte, p store.Params) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx := context.Background()

	if r.auMs.Load() == 0 {
		d := p.AUDurationMs(len(payload))
		if d <= 0 {
			r.log.Warnf("cannot time %d byte AU for %s, dropping", len(payload), p)
			metrics.Inc(ctx, r.metrics.AUsDropped)
			return false
		}
		r.auMs.Store(d)
		r.log.Infof("recording %s, %dms per AU", p, d)
	}

	if err := r.w.WriteAU(payload, p); err != nil {
		if errors.Is(err, store.ErrClosed) {
			r.log.Debug("recorder closed, dropping AU")
			return false
		}
		r.log.WithError(err).Warn("failed to write AU")
		metrics.Inc(ctx, r.metrics.AUsDropped)
		return false
	}

	metrics.Inc(ctx, r.metrics.AUsWritten)
	r.metrics.Recorded.Record(ctx, r.DurationMs())
	return true
}

// WriteTextual persists a dynamic-label update at the current AU and feeds
// the skip detector
func (r *Recorder) WriteTextual(t *metadata.Textual) {
	if t == nil {
		return
	}

	added, removed, ok := r.writeTextual(t)
	if !ok {
		return
	}
	for _, it := range removed {
		r.listeners.each(func(l Listener) { l.SkipItemRemoved(it) })
	}
	r.listeners.each(func(l Listener) { l.SkipItemAdded(added) })
}

func (r *Recorder) writeTextual(t *metadata.Textual) (skip.Item, []skip.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx := context.Background()

	c := r.w.Committed()
	ref, err := r.blobs.Serialize(metadata.AreaTextual, c.AUs, t)
	if err != nil {
		r.log.WithError(err).Warn("failed to persist textual metadata")
		return skip.Item{}, nil, false
	}
	if err := r.textuals.Append(c.AUs, ref); err != nil {
		r.log.WithError(err).Warn("failed to index textual metadata")
		return skip.Item{}, nil, false
	}
	metrics.Inc(ctx, r.metrics.MetadataWritten, metrics.Area(string(metadata.AreaTextual)))

	mark := skip.Mark{
		AU:         c.AUs,
		Offset:     max(c.Offset, store.HeaderSize),
		DurationMs: c.AUs * r.auMs.Load(),
	}
	item, ok := r.detector.Observe(t, mark, ref, r.visual)
	if !ok {
		return skip.Item{}, nil, false
	}

	r.items = append(r.items, item)
	var removed []skip.Item
	if r.maxItems > 0 && len(r.items) > r.maxItems {
		n := len(r.items) - r.maxItems
		removed = slices.Clone(r.items[:n])
		r.items = slices.Delete(r.items, 0, n)
	}
	metrics.Inc(ctx, r.metrics.SkipItems)
	r.log.WithField("au", item.AU).Debug("skip item detected")
	return item, removed, true
}

// WriteVisual persists a slideshow image at the current AU
func (r *Recorder) WriteVisual(v *metadata.Visual) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.w.Committed()
	ref, err := r.blobs.Serialize(metadata.AreaVisual, c.AUs, v)
	if err != nil {
		r.log.WithError(err).Warn("failed to persist visual metadata")
		return
	}
	if err := r.visuals.Append(c.AUs, ref); err != nil {
		r.log.WithError(err).Warn("failed to index visual metadata")
		return
	}
	r.visual = ref
	metrics.Inc(context.Background(), r.metrics.MetadataWritten, metrics.Area(string(metadata.AreaVisual)))
}

// SkipItems returns the detected skip points, oldest first
func (r *Recorder) SkipItems() []skip.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// AUDurationMs is the nominal duration of one AU, 0 before the first AU
func (r *Recorder) AUDurationMs() int64 {
	return r.auMs.Load()
}

// DurationMs is the committed recording length
func (r *Recorder) DurationMs() int64 {
	return r.w.Committed().AUs * r.auMs.Load()
}

func (r *Recorder) close() error {
	return r.w.Close()
}

func (r *Recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textuals.Reset()
	r.visuals.Reset()
	r.items = nil
	r.visual = ""
}
