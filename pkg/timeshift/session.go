// ABOUTME: Timeshift session tying the recorder and the playback scheduler together
// ABOUTME: Owns the session directory and exposes play, pause, seek and skip controls
package timeshift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StoreFile is the name of the AU store inside a session directory
const StoreFile = "timeshift.dab"

const (
	noSeek          = -1
	stopJoinTimeout = 250 * time.Millisecond
)

// ErrStopped is returned by operations on a stopped session
var ErrStopped = errors.New("timeshift session stopped")

// Session records one live stream and plays it back with a delay the
// listener controls. Feed it through Recorder(); control it through the
// Session methods. All methods are safe for concurrent use.
type Session struct {
	cfg     Config
	id      string
	dir     string
	writer  *store.Writer
	blobs   *metadata.FileStore
	rec     *Recorder
	metrics *metrics.Metrics
	log     *log.Entry

	listeners      listenerSet[Listener]
	audioListeners listenerSet[AudioDataListener]

	mu      sync.Mutex
	sched   *scheduler
	stopped bool

	playWhenReady atomic.Bool
	pendingSeek   atomic.Int64
	pendingSkip   atomic.Pointer[skip.Item]
	paused        atomic.Bool
	position      atomic.Int64 // AUs played
	state         atomic.Int32
	wake          chan struct{}
}

// NewSession creates the session directory, the store file and the
// metadata areas. Nothing plays until Play or SetPlayWhenReady.
func NewSession(cfg Config) (*Session, error) {
	cfg.setDefaults()

	m := metrics.Noop()
	if cfg.MeterProvider != nil {
		var err error
		if m, err = metrics.New(cfg.MeterProvider); err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	id := uuid.NewString()
	dir := filepath.Join(cfg.Dir, "timeshift-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	blobs, err := metadata.NewFileStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	w, err := store.Create(filepath.Join(dir, StoreFile), store.WriterOptions{SyncWrites: cfg.SyncWrites})
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	s := &Session{
		cfg:     cfg,
		id:      id,
		dir:     dir,
		writer:  w,
		blobs:   blobs,
		metrics: m,
		log:     log.WithFields(log.Fields{"component": "session", "session": id}),
		wake:    make(chan struct{}, 1),
	}
	s.pendingSeek.Store(noSeek)
	s.rec = newRecorder(w, blobs, cfg, &s.listeners, m)
	s.rec.onCommit = s.onCommit

	s.log.WithField("dir", dir).Info("timeshift session created")
	return s, nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Dir returns the session directory
func (s *Session) Dir() string {
	return s.dir
}

// Recorder returns the producer side of the session
func (s *Session) Recorder() *Recorder {
	return s.rec
}

// Play starts playback from the beginning of the recording. Further calls
// do nothing; use Pause(false) to resume.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.sched != nil {
		s.mu.Unlock()
		return nil
	}

	reader, err := store.OpenReader(s.writer.Path(), s.writer)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	sc := newScheduler(s, reader)
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel
	s.sched = sc
	s.playWhenReady.Store(false)
	go sc.run(ctx)
	s.mu.Unlock()

	s.log.Info("playback started")
	s.listeners.each(func(l Listener) { l.Started() })
	return nil
}

// SetPlayWhenReady starts playback once Config.MinBuffer has been recorded
func (s *Session) SetPlayWhenReady() {
	s.playWhenReady.Store(true)
	s.onCommit()
}

func (s *Session) onCommit() {
	s.wakeScheduler()

	if !s.playWhenReady.Load() {
		return
	}
	if time.Duration(s.rec.DurationMs())*time.Millisecond < s.cfg.MinBuffer {
		return
	}
	if s.playWhenReady.CompareAndSwap(true, false) {
		if err := s.Play(); err != nil && !errors.Is(err, ErrStopped) {
			s.log.WithError(err).Error("failed to start playback")
		}
	}
}

// Pause pauses or resumes playback. Recording continues while paused.
func (s *Session) Pause(pause bool) {
	if s.paused.Swap(pause) == pause {
		return
	}
	s.wakeScheduler()

	if pause {
		s.listeners.each(func(l Listener) { l.Paused() })
	} else {
		s.listeners.each(func(l Listener) { l.Started() })
	}
}

// IsPaused reports whether playback is paused
func (s *Session) IsPaused() bool {
	return s.paused.Load()
}

// Seek requests a jump to ms into the recording. Targets at or past the
// recorded duration are ignored.
func (s *Session) Seek(ms int64) {
	s.pendingSeek.Store(max(ms, 0))
	s.wakeScheduler()
}

// SkipTo requests a jump to a recorded skip point
func (s *Session) SkipTo(item skip.Item) {
	s.pendingSkip.Store(&item)
	s.wakeScheduler()
}

// SkipItems returns the detected skip points, oldest first
func (s *Session) SkipItems() []skip.Item {
	return s.rec.SkipItems()
}

// Position returns the playback position in milliseconds
func (s *Session) Position() int64 {
	return s.position.Load() * s.rec.AUDurationMs()
}

// Duration returns the recorded duration in milliseconds
func (s *Session) Duration() int64 {
	return s.rec.DurationMs()
}

// State returns the playback state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) bool {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.log.Debugf("state %s -> %s", old, st)
		return true
	}
	return false
}

// AddListener registers l for player events
func (s *Session) AddListener(l Listener) {
	s.listeners.add(l)
}

// RemoveListener unregisters l
func (s *Session) RemoveListener(l Listener) {
	s.listeners.remove(l)
}

// AddAudioDataListener registers l for decoded audio
func (s *Session) AddAudioDataListener(l AudioDataListener) {
	s.audioListeners.add(l)
}

// RemoveAudioDataListener unregisters l
func (s *Session) RemoveAudioDataListener(l AudioDataListener) {
	s.audioListeners.remove(l)
}

// Stop ends recording and playback. The scheduler is given a short grace
// period to finish its current pass; it may still be running when Stop
// returns. With deleteStore the whole session directory is removed.
func (s *Session) Stop(deleteStore bool) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	sc := s.sched
	s.mu.Unlock()

	s.playWhenReady.Store(false)
	if err := s.rec.close(); err != nil {
		s.log.WithError(err).Warn("failed to close store")
	}

	if sc != nil {
		sc.cancel()
		select {
		case <-sc.done:
		case <-time.After(stopJoinTimeout):
			s.log.Warn("scheduler did not stop in time")
		}
	}
	s.rec.reset()
	s.setState(Idle)

	var err error
	if deleteStore {
		if rmErr := s.blobs.Remove(); rmErr != nil {
			err = fmt.Errorf("failed to delete session directory: %w", rmErr)
		}
	}

	s.log.WithField("deleted", deleteStore).Info("timeshift session stopped")
	s.listeners.each(func(l Listener) { l.Stopped() })
	return err
}

func (s *Session) wakeScheduler() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
