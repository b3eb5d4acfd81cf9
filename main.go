// ABOUTME: Entry point for the timeshift demo player
// ABOUTME: Records a simulated broadcast and plays it back with pause, seek and skip
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/internal/artwork"
	"github.com/Resonate-Protocol/timeshift-go/internal/broadcast"
	"github.com/Resonate-Protocol/timeshift-go/internal/config"
	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/internal/source"
	"github.com/Resonate-Protocol/timeshift-go/internal/ui"
	"github.com/Resonate-Protocol/timeshift-go/internal/version"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/output"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/skip"
	"github.com/Resonate-Protocol/timeshift-go/pkg/timeshift"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var (
	configFile  = flag.String("config", "", "YAML config file")
	audioFile   = flag.String("audio", "", "Audio file to broadcast (MP3, FLAC). If not specified, plays test tone")
	codec       = flag.String("codec", "", "Broadcast codec: opus or pcm")
	storeDir    = flag.String("store-dir", "", "Directory for the timeshift store (default: system temp dir)")
	keepStore   = flag.Bool("keep", false, "Keep the timeshift store on exit")
	engine      = flag.String("engine", "", "Decode engine: sync or pipelined")
	minBuffer   = flag.Duration("min-buffer", 0, "Recording needed before playback starts")
	nullOutput  = flag.Bool("null-output", false, "Discard audio instead of playing it")
	logFile     = flag.String("log-file", "", "Log file path")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetLevel(cfg.LogLevel())
	if cfg.UI.Enabled {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s", version.Product, version.Version)

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("Player stopped")
}

// loadConfig reads the config file and applies flags given on the command line
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "audio":
			cfg.Source.Path = *audioFile
		case "codec":
			cfg.Source.Codec = *codec
		case "store-dir":
			cfg.Store.Dir = *storeDir
		case "keep":
			cfg.Store.DeleteOnStop = !*keepStore
		case "engine":
			cfg.Player.Engine = *engine
		case "min-buffer":
			cfg.Player.MinBuffer = *minBuffer
		case "null-output":
			if *nullOutput {
				cfg.Player.Output = "null"
			}
		case "log-file":
			cfg.Log.File = *logFile
		case "log-level":
			cfg.Log.Level = *logLevel
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "no-tui":
			cfg.UI.Enabled = !*noTUI
		}
	})

	return cfg, config.Validate(cfg)
}

func run(cfg *config.Config) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	sessionCfg := cfg.Session()
	if cfg.Metrics.Addr != "" {
		shutdown, err := metrics.InitProvider(ctx, version.Product, version.Version)
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		defer shutdown(context.Background())
		sessionCfg.MeterProvider = otel.GetMeterProvider()
	}

	session, err := timeshift.NewSession(sessionCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Stop(cfg.Store.DeleteOnStop); err != nil {
			log.WithError(err).Warn("failed to stop session")
		}
	}()

	src, err := source.New(cfg.Source.Path)
	if err != nil {
		return err
	}

	art, err := artwork.NewDownloader("")
	if err != nil {
		return err
	}
	defer art.Cleanup()

	opts := broadcast.Options{Codec: cfg.Source.Codec, ItemInterval: cfg.Source.ItemInterval}
	if cfg.Source.ArtworkURL != "" {
		if opts.Artwork, err = art.Fetch(ctx, cfg.Source.ArtworkURL); err != nil {
			log.WithError(err).Warn("broadcasting without artwork")
		}
	}

	sim, err := broadcast.New(src, session.Recorder(), opts)
	if err != nil {
		src.Close()
		return err
	}
	defer sim.Close()

	var out output.Output
	var oto *output.Oto
	if cfg.Player.Output == "null" {
		out = output.NewNull(!cfg.Player.RealTime)
	} else {
		oto = output.NewOto()
		out = oto
	}
	sink := output.NewSink(out)
	defer sink.Close()
	session.AddAudioDataListener(sink)

	var prog *tea.Program
	var volumeCtrl *ui.VolumeControl
	if cfg.UI.Enabled {
		volumeCtrl = ui.NewVolumeControl()
		prog = ui.Run(session, volumeCtrl)
	}
	updateTUI := func(msg ui.StatusMsg) {
		if prog != nil {
			prog.Send(msg)
		}
	}

	session.AddListener(newStatusListener(session, art, updateTUI))
	p := sim.Params()
	log.WithField("dir", session.Dir()).Infof("Recording %s", p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Run(gctx)
	})
	g.Go(func() error {
		// Listener events reach the TUI, so this must not run before prog.Run
		if cfg.Player.PlayWhenReady {
			session.SetPlayWhenReady()
			return nil
		}
		return session.Play()
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler()}
		g.Go(func() error {
			log.Printf("Serving metrics on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	if prog != nil {
		g.Go(func() error {
			defer cancel()
			_, err := prog.Run()
			return err
		})
		g.Go(func() error {
			// Send blocks until the program loop is running
			updateTUI(ui.StatusMsg{Codec: p.Content.String(), SampleRate: p.SampleRate, Channels: p.Channels, Dir: session.Dir()})
			<-gctx.Done()
			prog.Quit()
			return nil
		})
		g.Go(func() error {
			handleVolumeControl(gctx, oto, volumeCtrl)
			return nil
		})
		g.Go(func() error {
			statsUpdateLoop(gctx, session, updateTUI)
			return nil
		})
	}

	err = g.Wait()
	log.Printf("Shutting down")
	return err
}

// newStatusListener forwards player events to the log and the TUI
func newStatusListener(session *timeshift.Session, art *artwork.Downloader, updateTUI func(ui.StatusMsg)) *timeshift.ListenerFuncs {
	return &timeshift.ListenerFuncs{
		OnStarted: func() { updateTUI(ui.StatusMsg{State: "playing"}) },
		OnPaused:  func() { updateTUI(ui.StatusMsg{State: "paused"}) },
		OnProgress: func(pos, total int64) {
			updateTUI(ui.StatusMsg{Progress: true, PositionMs: pos, DurationMs: total})
		},
		OnTextual: func(t *metadata.Textual) {
			log.WithField("label", t.Text).Info("now playing")
			title, _ := t.Item(metadata.ItemTitle)
			artist, _ := t.Item(metadata.ItemArtist)
			updateTUI(ui.StatusMsg{Label: t.Text, Title: title, Artist: artist})
		},
		OnVisual: func(v *metadata.Visual) {
			path, err := art.Save(v)
			if err != nil {
				log.WithError(err).Warn("failed to save artwork")
				return
			}
			updateTUI(ui.StatusMsg{Artwork: path})
		},
		OnSkipItemAdded: func(item skip.Item) {
			log.WithField("at", time.Duration(item.DurationMs)*time.Millisecond).Debug("skip point added")
			n := len(session.SkipItems())
			updateTUI(ui.StatusMsg{SkipItems: &n})
		},
	}
}

// handleVolumeControl processes volume changes from TUI
func handleVolumeControl(ctx context.Context, oto *output.Oto, volumeCtrl *ui.VolumeControl) {
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			if oto != nil {
				oto.SetVolume(vol.Volume)
				oto.SetMuted(vol.Muted)
			}
		case <-volumeCtrl.Quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically pushes playback state to the TUI
func statsUpdateLoop(ctx context.Context, session *timeshift.Session, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n := len(session.SkipItems())
			updateTUI(ui.StatusMsg{
				State:      session.State().String(),
				Progress:   true,
				PositionMs: session.Position(),
				DurationMs: session.Duration(),
				SkipItems:  &n,
			})
		case <-ctx.Done():
			return
		}
	}
}
