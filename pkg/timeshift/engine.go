// ABOUTME: Decode engines that sit between the store reader and audio listeners
// ABOUTME: Inline and goroutine-pipelined backends behind one slot-based interface
package timeshift

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	log "github.com/sirupsen/logrus"
)

// Engine turns AUs into decoded buffers with bounded queues on both sides.
// Only the scheduler goroutine calls it.
type Engine interface {
	// AcquireInputSlot reports whether Submit would accept an AU now
	AcquireInputSlot() bool

	// Submit queues one AU. ts is its position in microseconds. It returns
	// false when the engine is full; the caller keeps the AU and retries.
	Submit(payload []byte, ts int64) bool

	// AcquireOutput returns the next decoded buffer, if one is ready
	AcquireOutput() (audio.Buffer, bool)

	// Flush drops queued input and output
	Flush()

	// Release stops the engine and closes its decoder
	Release() error
}

// NewEngine builds the backend selected by kind for a stream
func NewEngine(kind EngineKind, p store.Params, newDecoder decode.Factory, depth int, m *metrics.Metrics) (Engine, error) {
	format := p.Format()
	dec, err := newDecoder(format)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s decoder: %w", format.Codec, err)
	}

	switch kind {
	case EngineSync, "":
		return NewSyncEngine(dec, format, p.MaxPayload(), depth, m), nil
	case EnginePipelined:
		return NewPipelinedEngine(dec, format, p.MaxPayload(), depth, m), nil
	default:
		dec.Close()
		return nil, fmt.Errorf("unknown engine: %q", kind)
	}
}

// decodeAU runs one AU through dec. Oversized or undecodable AUs are logged
// and dropped; they are never retried.
func decodeAU(dec decode.Decoder, format audio.Format, maxPayload int, payload []byte, ts int64, m *metrics.Metrics) (audio.Buffer, bool) {
	if len(payload) > maxPayload {
		log.WithField("component", "engine").Warnf("dropping %d byte AU (max %d)", len(payload), maxPayload)
		metrics.Inc(context.Background(), m.DecodeErrors)
		return audio.Buffer{}, false
	}

	samples, err := dec.Decode(payload)
	if err != nil {
		log.WithField("component", "engine").WithError(err).Warn("decode failed")
		metrics.Inc(context.Background(), m.DecodeErrors)
		return audio.Buffer{}, false
	}
	if len(samples) == 0 {
		return audio.Buffer{}, false
	}
	return audio.Buffer{Timestamp: ts, Samples: samples, Format: format}, true
}

// SyncEngine decodes inside Submit and queues the result
type SyncEngine struct {
	dec        decode.Decoder
	format     audio.Format
	maxPayload int
	depth      int
	out        []audio.Buffer
	metrics    *metrics.Metrics
}

// NewSyncEngine wraps dec. depth bounds the number of undelivered buffers.
func NewSyncEngine(dec decode.Decoder, format audio.Format, maxPayload, depth int, m *metrics.Metrics) *SyncEngine {
	return &SyncEngine{
		dec:        dec,
		format:     format,
		maxPayload: maxPayload,
		depth:      max(depth, 1),
		metrics:    m,
	}
}

func (e *SyncEngine) AcquireInputSlot() bool {
	return len(e.out) < e.depth
}

func (e *SyncEngine) Submit(payload []byte, ts int64) bool {
	if !e.AcquireInputSlot() {
		return false
	}
	if buf, ok := decodeAU(e.dec, e.format, e.maxPayload, payload, ts, e.metrics); ok {
		e.out = append(e.out, buf)
	}
	return true
}

func (e *SyncEngine) AcquireOutput() (audio.Buffer, bool) {
	if len(e.out) == 0 {
		return audio.Buffer{}, false
	}
	buf := e.out[0]
	e.out = e.out[1:]
	return buf, true
}

func (e *SyncEngine) Flush() {
	e.out = nil
}

func (e *SyncEngine) Release() error {
	e.out = nil
	return e.dec.Close()
}

type decodeJob struct {
	gen     uint64
	payload []byte
	ts      int64
}

type decodeResult struct {
	gen uint64
	buf audio.Buffer
}

// PipelinedEngine decodes on a worker goroutine. Flush bumps a generation
// so results of AUs submitted before the flush are discarded.
type PipelinedEngine struct {
	dec  decode.Decoder
	in   chan decodeJob
	out  chan decodeResult
	done chan struct{}
	gen  atomic.Uint64
	wg   sync.WaitGroup
	once sync.Once
}

// NewPipelinedEngine starts the worker. depth bounds both queues.
func NewPipelinedEngine(dec decode.Decoder, format audio.Format, maxPayload, depth int, m *metrics.Metrics) *PipelinedEngine {
	depth = max(depth, 1)
	e := &PipelinedEngine{
		dec:  dec,
		in:   make(chan decodeJob, depth),
		out:  make(chan decodeResult, depth),
		done: make(chan struct{}),
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for job := range e.in {
			if job.gen != e.gen.Load() {
				continue
			}
			buf, ok := decodeAU(dec, format, maxPayload, job.payload, job.ts, m)
			if !ok {
				continue
			}
			select {
			case e.out <- decodeResult{gen: job.gen, buf: buf}:
			case <-e.done:
				return
			}
		}
	}()
	return e
}

func (e *PipelinedEngine) AcquireInputSlot() bool {
	return len(e.in) < cap(e.in)
}

func (e *PipelinedEngine) Submit(payload []byte, ts int64) bool {
	select {
	case e.in <- decodeJob{gen: e.gen.Load(), payload: payload, ts: ts}:
		return true
	default:
		return false
	}
}

func (e *PipelinedEngine) AcquireOutput() (audio.Buffer, bool) {
	for {
		select {
		case r := <-e.out:
			if r.gen != e.gen.Load() {
				continue
			}
			return r.buf, true
		default:
			return audio.Buffer{}, false
		}
	}
}

func (e *PipelinedEngine) Flush() {
	e.gen.Add(1)
	for {
		select {
		case <-e.in:
		case <-e.out:
		default:
			return
		}
	}
}

func (e *PipelinedEngine) Release() error {
	var err error
	e.once.Do(func() {
		close(e.done)
		close(e.in)
		e.wg.Wait()
		err = e.dec.Close()
	})
	return err
}
