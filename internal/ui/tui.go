// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and its volume/quit channels
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume change out of the TUI
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg signals that the user quit
type QuitMsg struct{}

// VolumeControl holds channels for volume control communication
type VolumeControl struct {
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// NewVolumeControl creates a new volume control handler
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls Controls, volCtrl *VolumeControl) Model {
	return Model{
		controls:   controls,
		volumeCtrl: volCtrl,
		volume:     100,
		state:      "idle",
	}
}

// Run creates the TUI program. The caller runs it.
func Run(controls Controls, volCtrl *VolumeControl) *tea.Program {
	return tea.NewProgram(NewModel(controls, volCtrl), tea.WithAltScreen())
}
