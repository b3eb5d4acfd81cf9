// ABOUTME: Bubbletea model for the timeshift player TUI
// ABOUTME: Renders recording/playback state and maps keys to timeshift controls
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	seekStep = 10_000 // ms

	// prevGrace is how far into an item "previous" still means the item
	// before it
	prevGrace = 2_000 // ms
)

// Controls is the part of a timeshift session the TUI drives
type Controls interface {
	Pause(pause bool)
	IsPaused() bool
	Seek(ms int64)
	SkipTo(item skip.Item)
	SkipItems() []skip.Item
	Position() int64
	Duration() int64
}

// Model represents the TUI state
type Model struct {
	controls   Controls
	volumeCtrl *VolumeControl

	// Stream
	codec      string
	sampleRate int
	channels   int

	// Metadata
	label   string
	title   string
	artist  string
	artwork string

	// Playback
	state      string
	positionMs int64
	durationMs int64
	skipItems  int
	volume     int
	muted      bool

	// Debug
	showDebug bool
	dir       string

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderTimeline()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ Timeshift Player ───────────────────────────────────┐
│ State:  %-44s │
├──────────────────────────────────────────────────────┤
`, m.state)
}

// renderStreamInfo renders current stream and metadata
func (m Model) renderStreamInfo() string {
	if m.codec == "" {
		return "│ Waiting for broadcast                                │\n"
	}

	s := "│ Now Playing:                                         │\n"
	if m.title != "" {
		s += fmt.Sprintf("│   Track:  %-42s │\n", truncate(m.title, 42))
		s += fmt.Sprintf("│   Artist: %-42s │\n", truncate(m.artist, 42))
	} else if m.label != "" {
		s += fmt.Sprintf("│   %-50s │\n", truncate(m.label, 50))
	} else {
		s += "│   (No metadata)                                      │\n"
	}
	if m.artwork != "" {
		s += fmt.Sprintf("│   Art:    %-42s │\n", truncate(m.artwork, 42))
	}

	s += "│                                                      │\n"
	s += fmt.Sprintf("│ Format: %-44s │\n",
		fmt.Sprintf("%s %dHz %s", m.codec, m.sampleRate, channelName(m.channels)))

	return s
}

// renderTimeline renders position, live edge and the gap between them
func (m Model) renderTimeline() string {
	behind := max(m.durationMs-m.positionMs, 0)
	bar := renderBar(int(m.positionMs/1000), int(m.durationMs/1000), 30)
	return fmt.Sprintf("│                                                      │\n"+
		"│ [%s] %s / %-11s │\n"+
		"│ Behind live: %-39s │\n",
		bar, formatMs(m.positionMs), formatMs(m.durationMs), formatMs(behind))
}

// renderControls renders volume and skip status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	return fmt.Sprintf("│ Volume: [%s] %-29s │\n"+
		"│ Skip points: %-39d │\n",
		renderBar(m.volume, 100, 10), fmt.Sprintf("%d%%%s", m.volume, muteIcon), m.skipItems)
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Pause ←/→:Seek p/n:Skip ↑/↓:Vol m:Mute q:Quit  │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf("│ DEBUG:                                               │\n"+
		"│   Store: %-43s │\n", truncate(m.dir, 43))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case " ":
		if m.controls != nil {
			return m, togglePause(m.controls)
		}
	case "left":
		if m.controls != nil {
			m.controls.Seek(max(m.controls.Position()-seekStep, 0))
		}
	case "right":
		if m.controls != nil {
			m.controls.Seek(m.controls.Position() + seekStep)
		}
	case "n":
		m.skipNext()
	case "p":
		m.skipPrev()
	case "up":
		m.volume = min(m.volume+5, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-5, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// togglePause runs outside Update because pause events are sent back to
// the program
func togglePause(c Controls) tea.Cmd {
	return func() tea.Msg {
		c.Pause(!c.IsPaused())
		return nil
	}
}

// skipNext jumps to the first skip point after the playback position
func (m Model) skipNext() {
	if m.controls == nil {
		return
	}
	pos := m.controls.Position()
	for _, it := range m.controls.SkipItems() {
		if it.DurationMs > pos {
			m.controls.SkipTo(it)
			return
		}
	}
}

// skipPrev jumps to the start of the current item, or the one before it
// when playback is still near the current item's start
func (m Model) skipPrev() {
	if m.controls == nil {
		return
	}
	pos := m.controls.Position()
	items := m.controls.SkipItems()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].DurationMs < pos-prevGrace {
			m.controls.SkipTo(items[i])
			return
		}
	}
	m.controls.Seek(0)
}

func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.Label != "" {
		m.label = msg.Label
		m.title = msg.Title
		m.artist = msg.Artist
	}
	if msg.Artwork != "" {
		m.artwork = msg.Artwork
	}
	if msg.Progress {
		m.positionMs = msg.PositionMs
		m.durationMs = msg.DurationMs
	}
	if msg.SkipItems != nil {
		m.skipItems = *msg.SkipItems
	}
	if msg.Dir != "" {
		m.dir = msg.Dir
	}
}

// StatusMsg updates TUI state. Zero fields are left unchanged.
type StatusMsg struct {
	State      string
	Codec      string
	SampleRate int
	Channels   int
	Label      string
	Title      string
	Artist     string
	Artwork    string
	Progress   bool
	PositionMs int64
	DurationMs int64
	SkipItems  *int
	Dir        string
}

func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = min(value*width/max, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

func formatMs(ms int64) string {
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
