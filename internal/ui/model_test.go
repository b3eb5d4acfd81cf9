// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and timeshift control mapping
package ui

import (
	"strings"
	"testing"

	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeControls struct {
	paused   bool
	position int64
	duration int64
	items    []skip.Item
	seeks    []int64
	skips    []skip.Item
}

func (f *fakeControls) Pause(p bool)           { f.paused = p }
func (f *fakeControls) IsPaused() bool         { return f.paused }
func (f *fakeControls) Seek(ms int64)          { f.seeks = append(f.seeks, ms) }
func (f *fakeControls) SkipTo(it skip.Item)    { f.skips = append(f.skips, it) }
func (f *fakeControls) SkipItems() []skip.Item { return f.items }
func (f *fakeControls) Position() int64        { return f.position }
func (f *fakeControls) Duration() int64        { return f.duration }

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		if cmd != nil {
			cmd()
		}
		m = next.(Model)
	}
	return m
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil, nil)

	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}
	if model.state != "idle" {
		t.Errorf("expected idle state, got %q", model.state)
	}
	if model.muted || model.showDebug {
		t.Error("expected mute and debug off initially")
	}
}

func TestPauseToggle(t *testing.T) {
	c := &fakeControls{}
	m := press(NewModel(c, nil), " ")
	if !c.paused {
		t.Error("expected space to pause")
	}
	press(m, " ")
	if c.paused {
		t.Error("expected second space to resume")
	}
}

func TestSeekKeys(t *testing.T) {
	c := &fakeControls{position: 15_000, duration: 60_000}
	m := NewModel(c, nil)

	press(m, "right", "left")
	c.position = 4_000
	press(m, "left")

	want := []int64{25_000, 5_000, 0}
	if len(c.seeks) != len(want) {
		t.Fatalf("expected seeks %v, got %v", want, c.seeks)
	}
	for i := range want {
		if c.seeks[i] != want[i] {
			t.Errorf("seek %d: expected %d, got %d", i, want[i], c.seeks[i])
		}
	}
}

func TestSkipKeys(t *testing.T) {
	items := []skip.Item{{AU: 50, DurationMs: 1_000}, {AU: 500, DurationMs: 10_000}, {AU: 1000, DurationMs: 20_000}}

	tests := []struct {
		name     string
		key      string
		position int64
		wantSkip int64 // AU, -1 for none
		wantSeek bool
	}{
		{"next from start", "n", 0, 50, false},
		{"next mid item", "n", 12_000, 1000, false},
		{"next past last", "n", 25_000, -1, false},
		{"prev inside item", "p", 15_000, 500, false},
		{"prev near item start", "p", 11_000, 50, false},
		{"prev before first", "p", 2_000, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeControls{position: tt.position, items: items}
			press(NewModel(c, nil), tt.key)

			switch {
			case tt.wantSkip < 0 && len(c.skips) != 0:
				t.Errorf("expected no skip, got %v", c.skips)
			case tt.wantSkip >= 0 && (len(c.skips) != 1 || c.skips[0].AU != tt.wantSkip):
				t.Errorf("expected skip to AU %d, got %v", tt.wantSkip, c.skips)
			}
			if got := len(c.seeks) == 1 && c.seeks[0] == 0; got != tt.wantSeek {
				t.Errorf("expected restart seek %v, got seeks %v", tt.wantSeek, c.seeks)
			}
		})
	}
}

func TestVolumeKeys(t *testing.T) {
	vc := NewVolumeControl()
	m := press(NewModel(nil, vc), "up", "down", "down", "m")

	if m.volume != 90 {
		t.Errorf("expected volume 90, got %d", m.volume)
	}
	if !m.muted {
		t.Error("expected muted")
	}

	var last VolumeChangeMsg
	for i := 0; i < 4; i++ {
		last = <-vc.Changes
	}
	if last.Volume != 90 || !last.Muted {
		t.Errorf("unexpected last volume change %+v", last)
	}
}

func TestQuitKey(t *testing.T) {
	vc := NewVolumeControl()
	_, cmd := NewModel(nil, vc).Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	select {
	case <-vc.Quit:
	default:
		t.Error("expected quit notification")
	}
}

func TestKeysWithoutControls(t *testing.T) {
	m := press(NewModel(nil, nil), " ", "left", "right", "n", "p", "d")
	if !m.showDebug {
		t.Error("expected debug toggle to work without controls")
	}
}

func TestStatusMsgStreamInfo(t *testing.T) {
	model := NewModel(nil, nil)
	model.applyStatus(StatusMsg{Codec: "opus", SampleRate: 48000, Channels: 2})

	if model.codec != "opus" || model.sampleRate != 48000 || model.channels != 2 {
		t.Errorf("unexpected stream info %s/%d/%d", model.codec, model.sampleRate, model.channels)
	}
}

func TestStatusMsgMetadata(t *testing.T) {
	model := NewModel(nil, nil)
	model.applyStatus(StatusMsg{Label: "Artist - Song", Title: "Song", Artist: "Artist"})
	if model.title != "Song" || model.artist != "Artist" {
		t.Errorf("unexpected metadata %q/%q", model.title, model.artist)
	}

	// An untagged label clears stale items
	model.applyStatus(StatusMsg{Label: "News at ten"})
	if model.label != "News at ten" || model.title != "" {
		t.Errorf("expected items cleared, got label %q title %q", model.label, model.title)
	}
}

func TestStatusMsgProgress(t *testing.T) {
	model := NewModel(nil, nil)
	n := 3
	model.applyStatus(StatusMsg{Progress: true, PositionMs: 5_000, DurationMs: 65_000, SkipItems: &n})

	if model.positionMs != 5_000 || model.durationMs != 65_000 {
		t.Errorf("unexpected progress %d/%d", model.positionMs, model.durationMs)
	}
	if model.skipItems != 3 {
		t.Errorf("expected 3 skip items, got %d", model.skipItems)
	}

	// Zero values leave state alone
	model.applyStatus(StatusMsg{State: "playing"})
	if model.positionMs != 5_000 || model.skipItems != 3 {
		t.Error("expected progress to survive an unrelated update")
	}
}

func TestView(t *testing.T) {
	m := NewModel(nil, nil)
	if m.View() != "Loading..." {
		t.Errorf("expected loading view before the first resize")
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	m.applyStatus(StatusMsg{
		State: "playing", Codec: "opus", SampleRate: 48000, Channels: 2,
		Label: "Artist - Song", Title: "Song", Artist: "Artist",
		Progress: true, PositionMs: 61_000, DurationMs: 125_000,
	})

	view := m.View()
	for _, want := range []string{"playing", "Song", "1:01 / 2:05", "Behind live: 1:04", "opus 48000Hz Stereo"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input  string
		length int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.length); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 4); got != "██░░" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := renderBar(3, 0, 3); got != "░░░" {
		t.Errorf("expected empty bar for zero max, got %q", got)
	}
	if got := renderBar(20, 10, 2); got != "██" {
		t.Errorf("expected full bar when over max, got %q", got)
	}
}

func TestFormatMs(t *testing.T) {
	if got := formatMs(3_725_000); got != "62:05" {
		t.Errorf("expected 62:05, got %q", got)
	}
}
