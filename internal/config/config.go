// ABOUTME: Configuration for the timeshift demo player
// ABOUTME: YAML loading with defaults and joined validation errors
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/timeshift"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Player  PlayerConfig  `yaml:"player"`
	Skip    SkipConfig    `yaml:"skip"`
	Source  SourceConfig  `yaml:"source"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	UI      UIConfig      `yaml:"ui"`
}

type StoreConfig struct {
	Dir          string `yaml:"dir"`
	DeleteOnStop bool   `yaml:"delete_on_stop"`
	SyncWrites   bool   `yaml:"sync_writes"`
}

type PlayerConfig struct {
	PlayWhenReady bool          `yaml:"play_when_ready"`
	MinBuffer     time.Duration `yaml:"min_buffer"`
	RealTime      bool          `yaml:"realtime"`
	Engine        string        `yaml:"engine"`
	// Output is "oto" for the sound card or "null" to discard audio
	Output string `yaml:"output"`
}

type SkipConfig struct {
	// Categories limits skip points to label updates carrying one of these
	// item types (e.g. title, artist). Empty accepts every update.
	Categories []string `yaml:"categories"`
	MaxItems   int      `yaml:"max_items"`
}

type SourceConfig struct {
	Path         string        `yaml:"path"`
	Codec        string        `yaml:"codec"`
	ItemInterval time.Duration `yaml:"item_interval"`
	ArtworkURL   string        `yaml:"artwork_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9464"
	Addr string `yaml:"addr"`
}

type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Store: StoreConfig{DeleteOnStop: true},
		Player: PlayerConfig{
			PlayWhenReady: true,
			MinBuffer:     2 * time.Second,
			RealTime:      false,
			Engine:        string(timeshift.EngineSync),
			Output:        "oto",
		},
		Source: SourceConfig{
			Codec:        "opus",
			ItemInterval: 30 * time.Second,
		},
		Log: LogConfig{Level: "info", File: "timeshift.log"},
		UI:  UIConfig{Enabled: true},
	}
}

// Load reads the YAML file at path on top of the defaults
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of the defaults and validates
// the result
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validEngines = []string{string(timeshift.EngineSync), string(timeshift.EnginePipelined)}
	validCodecs  = []string{"opus", "pcm"}
	validOutputs = []string{"oto", "null"}
)

// Validate returns every problem in cfg joined into one error
func Validate(cfg *Config) error {
	var errs []error

	if !slices.Contains(validLevels, cfg.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if !slices.Contains(validEngines, cfg.Player.Engine) {
		errs = append(errs, fmt.Errorf("player.engine %q is invalid; valid values: sync, pipelined", cfg.Player.Engine))
	}
	if !slices.Contains(validOutputs, cfg.Player.Output) {
		errs = append(errs, fmt.Errorf("player.output %q is invalid; valid values: oto, null", cfg.Player.Output))
	}
	if cfg.Player.MinBuffer < 0 {
		errs = append(errs, fmt.Errorf("player.min_buffer %s must not be negative", cfg.Player.MinBuffer))
	}
	if !slices.Contains(validCodecs, cfg.Source.Codec) {
		errs = append(errs, fmt.Errorf("source.codec %q is invalid; valid values: opus, pcm", cfg.Source.Codec))
	}
	if cfg.Source.ItemInterval <= 0 {
		errs = append(errs, fmt.Errorf("source.item_interval %s must be positive", cfg.Source.ItemInterval))
	}
	if cfg.Skip.MaxItems < 0 {
		errs = append(errs, fmt.Errorf("skip.max_items %d must not be negative", cfg.Skip.MaxItems))
	}
	for i, name := range cfg.Skip.Categories {
		if _, err := metadata.ParseContentType(name); err != nil {
			errs = append(errs, fmt.Errorf("skip.categories[%d]: %w", i, err))
		}
	}

	if cfg.Player.RealTime && cfg.Player.Output == "oto" {
		log.Warn("player.realtime with the oto output paces twice; the device already blocks")
	}

	return errors.Join(errs...)
}

// SkipFilter builds the skip filter for the configured categories
func (c *Config) SkipFilter() skip.Filter {
	if len(c.Skip.Categories) == 0 {
		return skip.AcceptAll
	}
	types := make([]metadata.ContentType, 0, len(c.Skip.Categories))
	for _, name := range c.Skip.Categories {
		if ct, err := metadata.ParseContentType(name); err == nil {
			types = append(types, ct)
		}
	}
	return skip.ByCategories(types...)
}

// Session returns the timeshift session configuration
func (c *Config) Session() timeshift.Config {
	return timeshift.Config{
		Dir:          c.Store.Dir,
		SyncWrites:   c.Store.SyncWrites,
		MinBuffer:    c.Player.MinBuffer,
		RealTime:     c.Player.RealTime,
		Engine:       timeshift.EngineKind(c.Player.Engine),
		SkipFilter:   c.SkipFilter(),
		MaxSkipItems: c.Skip.MaxItems,
	}
}

// LogLevel returns the logrus level for Log.Level
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
