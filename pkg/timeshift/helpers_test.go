// ABOUTME: Shared fixtures for timeshift tests
// ABOUTME: PCM AU builders, event recorders and a tick-driven scheduler
package timeshift

import (
	"context"
	"sync"
	"testing"

	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
)

var pcmStereo = store.Params{Content: store.ContentPCM, SampleRate: 48000, Channels: 2}

// pcmAU returns a 20 ms AU for p filled with v
func pcmAU(p store.Params, v byte) []byte {
	frames := p.SampleRate / 50
	b := make([]byte, frames*p.Channels*2)
	for i := range b {
		b[i] = v
	}
	return b
}

type events struct {
	mu       sync.Mutex
	names    []string
	progress [][2]int64
	textuals []string
	visuals  []string
	added    []skip.Item
	removed  []skip.Item
}

func (e *events) listener() *ListenerFuncs {
	add := func(name string) {
		e.mu.Lock()
		e.names = append(e.names, name)
		e.mu.Unlock()
	}
	return &ListenerFuncs{
		OnStarted: func() { add("started") },
		OnPaused:  func() { add("paused") },
		OnStopped: func() { add("stopped") },
		OnProgress: func(pos, total int64) {
			e.mu.Lock()
			e.progress = append(e.progress, [2]int64{pos, total})
			e.mu.Unlock()
		},
		OnTextual: func(t *metadata.Textual) {
			e.mu.Lock()
			e.textuals = append(e.textuals, t.Text)
			e.mu.Unlock()
		},
		OnVisual: func(v *metadata.Visual) {
			e.mu.Lock()
			e.visuals = append(e.visuals, v.ContentName)
			e.mu.Unlock()
		},
		OnSkipItemAdded: func(it skip.Item) {
			e.mu.Lock()
			e.added = append(e.added, it)
			e.mu.Unlock()
		},
		OnSkipItemRemoved: func(it skip.Item) {
			e.mu.Lock()
			e.removed = append(e.removed, it)
			e.mu.Unlock()
		},
	}
}

func (e *events) snapshotNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

type collector struct {
	mu   sync.Mutex
	bufs []audio.Buffer
}

func (c *collector) AudioData(buf audio.Buffer) {
	c.mu.Lock()
	c.bufs = append(c.bufs, buf)
	c.mu.Unlock()
}

func (c *collector) timestamps() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := make([]int64, len(c.bufs))
	for i, b := range c.bufs {
		ts[i] = b.Timestamp
	}
	return ts
}

type fixture struct {
	s   *Session
	sc  *scheduler
	ev  *events
	out *collector
}

// newFixture builds a session whose scheduler is driven by tick instead of
// its own goroutine
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	cfg.Dir = t.TempDir()

	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.rec.close() })

	reader, err := store.OpenReader(s.writer.Path(), s.writer)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	sc := newScheduler(s, reader)
	t.Cleanup(sc.release)

	f := &fixture{s: s, sc: sc, ev: &events{}, out: &collector{}}
	s.AddListener(f.ev.listener())
	s.AddAudioDataListener(f.out)
	return f
}

func (f *fixture) record(t *testing.T, p store.Params, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f.s.Recorder().WriteAudio(pcmAU(p, byte(i)), p)
	}
}

func (f *fixture) ticks(n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		f.sc.tick(ctx)
	}
}

func tagged(text string, toggle bool) *metadata.Textual {
	return &metadata.Textual{
		Text:        text,
		Items:       []metadata.Item{{Type: metadata.ItemTitle, Text: text}},
		ItemToggle:  toggle,
		ItemRunning: true,
	}
}

func usTimestamps(aus ...int64) []int64 {
	ts := make([]int64, len(aus))
	for i, au := range aus {
		ts[i] = au * 20 * 1000
	}
	return ts
}
