// ABOUTME: Session configuration for the timeshift recorder and player
// ABOUTME: Defaults mirror the on-air behavior of a live radio timeshift buffer
package timeshift

import (
	"os"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"go.opentelemetry.io/otel/metric"
)

// EngineKind selects a decode engine backend
type EngineKind string

const (
	// EngineSync decodes on the scheduler goroutine
	EngineSync EngineKind = "sync"
	// EnginePipelined decodes on its own goroutine
	EnginePipelined EngineKind = "pipelined"
)

// Config configures a Session
type Config struct {
	// Dir is where the session directory is created (default: os.TempDir())
	Dir string

	// SyncWrites fsyncs the store after every AU
	SyncWrites bool

	// MinBuffer is how much must be recorded before play-when-ready starts
	// playback (default: 2s)
	MinBuffer time.Duration

	// RealTime paces delivery to the wall clock. Turn it off when the audio
	// listener already blocks at device speed, or in tests.
	RealTime bool

	// Lead is how far delivery may run ahead of the wall clock when RealTime
	// is set (default: 200ms)
	Lead time.Duration

	// Engine selects the decode backend (default: EngineSync)
	Engine EngineKind

	// EngineDepth bounds the decode engine queues (default: 4)
	EngineDepth int

	// NewDecoder builds decoders; the default handles pcm and opus
	NewDecoder decode.Factory

	// SkipFilter decides which toggle flips become skip items (default: all)
	SkipFilter skip.Filter

	// MaxSkipItems caps the skip list; the oldest item is dropped first.
	// Zero keeps every item.
	MaxSkipItems int

	// MeterProvider receives the session metrics (default: no-op)
	MeterProvider metric.MeterProvider
}

const (
	defaultMinBuffer   = 2 * time.Second
	defaultLead        = 200 * time.Millisecond
	defaultEngineDepth = 4
)

func (c *Config) setDefaults() {
	if c.Dir == "" {
		c.Dir = os.TempDir()
	}
	if c.MinBuffer <= 0 {
		c.MinBuffer = defaultMinBuffer
	}
	if c.Lead <= 0 {
		c.Lead = defaultLead
	}
	if c.Engine == "" {
		c.Engine = EngineSync
	}
	if c.EngineDepth <= 0 {
		c.EngineDepth = defaultEngineDepth
	}
	if c.NewDecoder == nil {
		c.NewDecoder = decode.New
	}
	if c.SkipFilter == nil {
		c.SkipFilter = skip.AcceptAll
	}
}
