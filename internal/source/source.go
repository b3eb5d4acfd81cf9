// ABOUTME: PCM sources feeding the simulated broadcast
// ABOUTME: Picks a test tone, MP3 or FLAC reader from a file path
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source provides interleaved PCM samples left-justified in 24 bits
type Source interface {
	// Read fills samples and returns how many were written. File sources
	// loop at end of file.
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	Close() error
}

// New opens a source for path. An empty path yields a test tone.
func New(path string) (Source, error) {
	if path == "" {
		return NewTestTone(), nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return NewMP3(path)
	case ".flac":
		return NewFLAC(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
