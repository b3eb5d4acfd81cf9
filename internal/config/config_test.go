// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, YAML overrides, unknown keys and joined errors
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/timeshift"
	log "github.com/sirupsen/logrus"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Player.MinBuffer != 2*time.Second {
		t.Errorf("expected default min buffer, got %s", cfg.Player.MinBuffer)
	}
}

func TestLoadFromReader(t *testing.T) {
	const doc = `
store:
  dir: /var/lib/timeshift
  delete_on_stop: false
player:
  min_buffer: 500ms
  engine: pipelined
  output: "null"
skip:
  categories: [title, artist]
  max_items: 20
source:
  codec: pcm
  item_interval: 45s
log:
  level: debug
metrics:
  addr: ":9464"
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}

	if cfg.Store.Dir != "/var/lib/timeshift" || cfg.Store.DeleteOnStop {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Player.MinBuffer != 500*time.Millisecond || cfg.Player.Engine != "pipelined" {
		t.Errorf("unexpected player config %+v", cfg.Player)
	}
	if !cfg.Player.PlayWhenReady {
		t.Error("expected unset keys to keep their defaults")
	}
	if cfg.Source.ItemInterval != 45*time.Second || cfg.Source.Codec != "pcm" {
		t.Errorf("unexpected source config %+v", cfg.Source)
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %s", cfg.LogLevel())
	}

	sc := cfg.Session()
	if sc.Engine != timeshift.EnginePipelined || sc.MaxSkipItems != 20 || sc.Dir != "/var/lib/timeshift" {
		t.Errorf("unexpected session config %+v", sc)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("player:\n  speed: 2\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Player.Engine = "turbo"
	cfg.Source.Codec = "aac"
	cfg.Skip.Categories = []string{"title", "mood"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log.level", "player.engine", "source.codec", "skip.categories[1]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeshift.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UI.Enabled {
		t.Error("expected ui disabled")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSkipFilter(t *testing.T) {
	cfg := Default()
	if !cfg.SkipFilter()(&metadata.Textual{}) {
		t.Error("expected accept-all filter without categories")
	}

	cfg.Skip.Categories = []string{"artist"}
	f := cfg.SkipFilter()
	title := &metadata.Textual{Items: []metadata.Item{{Type: metadata.ItemTitle, Text: "x"}}}
	artist := &metadata.Textual{Items: []metadata.Item{{Type: metadata.ItemArtist, Text: "y"}}}
	if f(title) {
		t.Error("expected title-only update to be rejected")
	}
	if !f(artist) {
		t.Error("expected artist update to be accepted")
	}
}
