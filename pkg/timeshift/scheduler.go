// ABOUTME: Playback scheduler that tails the store and feeds the decode engine
// ABOUTME: Applies seek/skip/pause requests, paces output and reports progress
package timeshift

import (
	"context"
	"errors"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	log "github.com/sirupsen/logrus"
)

// State of the playback scheduler
type State int32

const (
	Idle State = iota
	Playing
	Paused
	Draining // caught up with the writer, waiting for more AUs
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

const (
	idleInterval  = 10 * time.Millisecond
	drainInterval = 50 * time.Millisecond
)

// pacer keeps delivery within lead of the wall clock
type pacer struct {
	enabled   bool
	lead      time.Duration
	start     time.Time
	delivered time.Duration
}

func (p *pacer) reset() {
	p.start = time.Time{}
	p.delivered = 0
}

// wait returns how long to hold off before delivering more audio
func (p *pacer) wait(now time.Time) time.Duration {
	if !p.enabled {
		return 0
	}
	if p.start.IsZero() {
		p.start = now
	}
	if ahead := p.delivered - now.Sub(p.start); ahead > p.lead {
		return ahead - p.lead
	}
	return 0
}

func (p *pacer) add(d time.Duration) {
	p.delivered += d
}

// scheduler owns the read side of a session. Everything except run's
// select is driven from tick, which tests call directly.
type scheduler struct {
	s      *Session
	reader *store.Reader
	engine Engine
	params store.Params

	// engineErr remembers the params that failed to build an engine
	engineErr *store.Params

	rejected   []byte
	rejectedTS int64

	pacer      pacer
	lastPosSec int64
	lastDurSec int64

	cancel context.CancelFunc
	done   chan struct{}
	log    *log.Entry
}

func newScheduler(s *Session, reader *store.Reader) *scheduler {
	return &scheduler{
		s:          s,
		reader:     reader,
		pacer:      pacer{enabled: s.cfg.RealTime, lead: s.cfg.Lead},
		lastPosSec: -1,
		lastDurSec: -1,
		done:       make(chan struct{}),
		log:        log.WithField("component", "player"),
	}
}

// run loops until ctx is cancelled. It sleeps only when a tick found no
// work, and wakes early on s.wake.
func (sc *scheduler) run(ctx context.Context) {
	defer close(sc.done)
	defer sc.release()

	timer := time.NewTimer(idleInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		wait := sc.tick(ctx)
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-sc.s.wake:
		case <-timer.C:
		}
	}
}

// tick runs one pass of the playback loop and returns how long to idle
func (sc *scheduler) tick(ctx context.Context) time.Duration {
	if ms := sc.s.pendingSeek.Swap(noSeek); ms != noSeek {
		sc.applySeek(ctx, ms)
	}
	if item := sc.s.pendingSkip.Swap(nil); item != nil {
		sc.applySkip(ctx, *item)
	}

	if sc.s.paused.Load() {
		sc.s.setState(Paused)
		return idleInterval
	}

	sc.reportProgress(ctx)

	if !sc.ensureEngine() {
		return idleInterval
	}

	if wait := sc.pacer.wait(time.Now()); wait > 0 {
		return min(wait, idleInterval)
	}
	delivered := sc.deliver()

	if sc.rejected != nil {
		if !sc.engine.Submit(sc.rejected, sc.rejectedTS) {
			metrics.Inc(ctx, sc.s.metrics.FramesRejected)
			return idleIfNot(delivered)
		}
		sc.rejected = nil
		sc.advance()
		return 0
	}

	if !sc.engine.AcquireInputSlot() {
		return idleIfNot(delivered)
	}

	payload, err := sc.reader.Next()
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotYetAvailable):
		if delivered {
			return 0
		}
		if sc.reader.AtEnd() {
			if sc.s.setState(Draining) {
				sc.pacer.reset()
			}
			return drainInterval
		}
		return idleInterval
	case errors.Is(err, store.ErrSyncLost):
		n, err := sc.reader.Resync()
		if err != nil {
			sc.log.WithError(err).Warn("resync failed")
			return idleInterval
		}
		sc.log.WithField("skipped", n).Debug("resynchronized")
		sc.s.metrics.ResyncBytes.Add(ctx, n)
		return 0
	default:
		sc.log.WithError(err).Warn("store read failed")
		return idleInterval
	}

	metrics.Inc(ctx, sc.s.metrics.FramesRead)
	ts := sc.reader.Position().AU * sc.s.rec.AUDurationMs() * 1000
	if !sc.engine.Submit(payload, ts) {
		sc.rejected, sc.rejectedTS = payload, ts
		metrics.Inc(ctx, sc.s.metrics.FramesRejected)
		return idleIfNot(delivered)
	}
	sc.advance()
	return 0
}

func idleIfNot(worked bool) time.Duration {
	if worked {
		return 0
	}
	return idleInterval
}

// ensureEngine builds or rebuilds the engine for the params of the next AU
func (sc *scheduler) ensureEngine() bool {
	p, ok := sc.s.writer.ParamsAt(sc.reader.Position().AU)
	if !ok {
		return false
	}
	if sc.engine != nil && p.Equal(sc.params) {
		return true
	}
	if sc.engine == nil && sc.engineErr != nil && p.Equal(*sc.engineErr) {
		return false
	}

	if sc.engine != nil {
		sc.log.Infof("stream changed to %s", p)
		for sc.deliver() {
		}
		sc.engine.Release()
		sc.engine = nil
		sc.rejected = nil
	}

	engine, err := NewEngine(sc.s.cfg.Engine, p, sc.s.cfg.NewDecoder, sc.s.cfg.EngineDepth, sc.s.metrics)
	if err != nil {
		sc.log.WithError(err).Errorf("no decode engine for %s", p)
		sc.engineErr = &p
		return false
	}
	sc.engine = engine
	sc.engineErr = nil
	sc.params = p
	sc.reader.SetMinPayload(p.MinPayload())
	return true
}

// deliver hands at most one decoded buffer to the audio listeners
func (sc *scheduler) deliver() bool {
	buf, ok := sc.engine.AcquireOutput()
	if !ok {
		return false
	}
	buf.PlayAt = time.Now()
	sc.s.audioListeners.each(func(l AudioDataListener) { l.AudioData(buf) })
	sc.pacer.add(buf.Duration())
	return true
}

// advance counts the AU just submitted and delivers metadata attached to it
func (sc *scheduler) advance() {
	au := sc.reader.Position().AU
	sc.reader.Advance()
	sc.s.position.Store(au + 1)
	sc.s.setState(Playing)

	if e, ok := sc.s.rec.textuals.Exact(au); ok {
		sc.emitTextual(e.Ref)
	}
	if e, ok := sc.s.rec.visuals.Exact(au); ok {
		sc.emitVisual(e.Ref)
	}
}

func (sc *scheduler) applySeek(ctx context.Context, ms int64) {
	res, moved, err := sc.reader.SeekToDuration(ms, sc.s.rec.AUDurationMs())
	if err != nil {
		sc.log.WithError(err).Warn("seek failed")
		return
	}
	if !moved {
		sc.log.Debugf("seek to %dms ignored, beyond recording", ms)
		return
	}

	sc.flush()
	sc.s.position.Store(res.AU)
	metrics.Inc(ctx, sc.s.metrics.Seeks)
	sc.s.metrics.SeekScan.Record(ctx, res.Scanned)
	sc.log.WithFields(log.Fields{
		"target_ms": ms,
		"au":        res.AU,
		"offset":    res.Offset,
		"scanned":   res.Scanned,
	}).Debug("seek")

	// Entries keyed at the landing AU itself go out through advance
	if e, ok := sc.s.rec.textuals.FindNear(res.AU, metadata.TextualTolerance); ok && e.AU != res.AU {
		sc.emitTextual(e.Ref)
	}
	if e, ok := sc.s.rec.visuals.FindNear(res.AU, metadata.VisualTolerance); ok && e.AU != res.AU {
		sc.emitVisual(e.Ref)
	}
}

func (sc *scheduler) applySkip(ctx context.Context, item skip.Item) {
	sc.flush()
	sc.reader.SkipTo(store.Position{AU: item.AU, Offset: item.Offset})
	sc.s.position.Store(item.AU)
	metrics.Inc(ctx, sc.s.metrics.Skips)
	sc.log.WithField("au", item.AU).Debug("skip")

	if e, ok := sc.s.rec.textuals.Exact(item.AU); item.TextualRef != "" && (!ok || e.Ref != item.TextualRef) {
		sc.emitTextual(item.TextualRef)
	}
	if e, ok := sc.s.rec.visuals.Exact(item.AU); item.VisualRef != "" && (!ok || e.Ref != item.VisualRef) {
		sc.emitVisual(item.VisualRef)
	}
}

func (sc *scheduler) flush() {
	if sc.engine != nil {
		sc.engine.Flush()
	}
	sc.rejected = nil
	sc.pacer.reset()
}

// reportProgress emits when position or duration crosses a whole second
func (sc *scheduler) reportProgress(ctx context.Context) {
	pos := sc.s.Position()
	total := sc.s.Duration()
	if pos/1000 == sc.lastPosSec && total/1000 == sc.lastDurSec {
		return
	}
	sc.lastPosSec, sc.lastDurSec = pos/1000, total/1000
	sc.s.metrics.Lag.Record(ctx, total-pos)
	sc.s.listeners.each(func(l Listener) { l.Progress(pos, total) })
}

func (sc *scheduler) emitTextual(ref string) {
	t, err := metadata.LoadTextual(sc.s.blobs, ref)
	if err != nil {
		sc.log.WithError(err).Warn("failed to load textual metadata")
		return
	}
	sc.s.listeners.each(func(l Listener) { l.Textual(t) })
}

func (sc *scheduler) emitVisual(ref string) {
	v, err := metadata.LoadVisual(sc.s.blobs, ref)
	if err != nil {
		sc.log.WithError(err).Warn("failed to load visual metadata")
		return
	}
	sc.s.listeners.each(func(l Listener) { l.Visual(v) })
}

func (sc *scheduler) release() {
	if sc.engine != nil {
		if err := sc.engine.Release(); err != nil {
			sc.log.WithError(err).Debug("engine release failed")
		}
		sc.engine = nil
	}
	if err := sc.reader.Close(); err != nil {
		sc.log.WithError(err).Debug("reader close failed")
	}
}
