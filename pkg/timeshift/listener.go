// ABOUTME: Listener interfaces and fan-out for player events
// ABOUTME: Lifecycle, progress, metadata and skip-item events plus decoded audio
package timeshift

import (
	"slices"
	"sync"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
)

// Listener receives player events. Calls come from the scheduler goroutine
// and, for metadata and skip items, from the recording goroutine. They must
// not block.
type Listener interface {
	Started()
	Paused()
	Stopped()
	Progress(positionMs, totalMs int64)
	Textual(t *metadata.Textual)
	Visual(v *metadata.Visual)
	SkipItemAdded(item skip.Item)
	SkipItemRemoved(item skip.Item)
}

// AudioDataListener receives decoded audio in playback order. It may block
// to pace playback.
type AudioDataListener interface {
	AudioData(buf audio.Buffer)
}

// ListenerFuncs adapts optional callbacks to Listener. Register a pointer so
// it can be removed again.
type ListenerFuncs struct {
	OnStarted         func()
	OnPaused          func()
	OnStopped         func()
	OnProgress        func(positionMs, totalMs int64)
	OnTextual         func(t *metadata.Textual)
	OnVisual          func(v *metadata.Visual)
	OnSkipItemAdded   func(item skip.Item)
	OnSkipItemRemoved func(item skip.Item)
}

func (l *ListenerFuncs) Started() {
	if l.OnStarted != nil {
		l.OnStarted()
	}
}

func (l *ListenerFuncs) Paused() {
	if l.OnPaused != nil {
		l.OnPaused()
	}
}

func (l *ListenerFuncs) Stopped() {
	if l.OnStopped != nil {
		l.OnStopped()
	}
}

func (l *ListenerFuncs) Progress(positionMs, totalMs int64) {
	if l.OnProgress != nil {
		l.OnProgress(positionMs, totalMs)
	}
}

func (l *ListenerFuncs) Textual(t *metadata.Textual) {
	if l.OnTextual != nil {
		l.OnTextual(t)
	}
}

func (l *ListenerFuncs) Visual(v *metadata.Visual) {
	if l.OnVisual != nil {
		l.OnVisual(v)
	}
}

func (l *ListenerFuncs) SkipItemAdded(item skip.Item) {
	if l.OnSkipItemAdded != nil {
		l.OnSkipItemAdded(item)
	}
}

func (l *ListenerFuncs) SkipItemRemoved(item skip.Item) {
	if l.OnSkipItemRemoved != nil {
		l.OnSkipItemRemoved(item)
	}
}

// listenerSet is a copy-on-dispatch list. T must hold comparable dynamic
// values (pointers) for remove to work.
type listenerSet[T comparable] struct {
	mu    sync.Mutex
	items []T
}

func (s *listenerSet[T]) add(l T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.items, l) {
		s.items = append(s.items, l)
	}
}

func (s *listenerSet[T]) remove(l T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.items, l); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
}

func (s *listenerSet[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *listenerSet[T]) each(fn func(T)) {
	for _, l := range s.snapshot() {
		fn(l)
	}
}
