// ABOUTME: Simulated live broadcast feeding a timeshift recorder
// ABOUTME: Paces a PCM source into 20ms AUs and emits item-tagged labels and artwork
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/internal/source"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/resample"
	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	log "github.com/sirupsen/logrus"
)

const (
	// SampleRate of the broadcast; sources at other rates are resampled
	SampleRate = 48000

	// AUDuration of one encoded frame
	AUDuration = 20 * time.Millisecond
)

// Sink receives the broadcast. *timeshift.Recorder satisfies it.
type Sink interface {
	WriteAudio(payload []byte, p store.Params)
	WriteTextual(t *metadata.Textual)
	WriteVisual(v *metadata.Visual)
}

// Options configures a Simulator
type Options struct {
	// Codec is "opus" or "pcm"
	Codec string

	// ItemInterval is how often a new item starts
	ItemInterval time.Duration

	// Artwork is sent with every new item when set
	Artwork *metadata.Visual
}

// Simulator stands in for a live service
type Simulator struct {
	src    source.Source
	sink   Sink
	enc    encode.Encoder
	res    *resample.Resampler
	params store.Params
	opts   Options

	channels  int
	in        []int32
	resampled []int32
	pending   []int32

	aus       int64
	itemEvery int64
	item      int
	toggle    bool
	title     string
	artist    string
	log       *log.Entry
}

// New creates a simulator reading src and writing to sink
func New(src source.Source, sink Sink, opts Options) (*Simulator, error) {
	channels := src.Channels()
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}
	if opts.ItemInterval <= 0 {
		return nil, fmt.Errorf("item interval must be positive")
	}

	var content store.ContentType
	switch opts.Codec {
	case "opus":
		content = store.ContentOpus
	case "pcm":
		content = store.ContentPCM
	default:
		return nil, fmt.Errorf("unsupported broadcast codec: %s", opts.Codec)
	}

	enc, err := encode.New(audio.Format{Codec: opts.Codec, SampleRate: SampleRate, Channels: channels, BitDepth: 16})
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		src:       src,
		sink:      sink,
		enc:       enc,
		params:    store.Params{Content: content, SampleRate: SampleRate, Channels: channels},
		opts:      opts,
		channels:  channels,
		in:        make([]int32, enc.FrameSize()*channels),
		itemEvery: max(int64(opts.ItemInterval/AUDuration), 1),
		log:       log.WithField("component", "broadcast"),
	}
	if rate := src.SampleRate(); rate != SampleRate {
		s.res = resample.New(rate, SampleRate, channels)
		s.log.Infof("resampling source from %d Hz", rate)
	}
	s.title, s.artist, _ = src.Metadata()

	return s, nil
}

// Params returns the stream parameters of every AU
func (s *Simulator) Params() store.Params {
	return s.params
}

// Run produces one AU per AUDuration until ctx is done
func (s *Simulator) Run(ctx context.Context) error {
	s.log.Infof("broadcasting %s", s.params)

	ticker := time.NewTicker(AUDuration)
	defer ticker.Stop()

	for {
		if err := s.Step(); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.log.Info("broadcast stopping")
			return nil
		}
	}
}

// Step emits one AU, preceded by item metadata when an item starts
func (s *Simulator) Step() error {
	if s.aus%s.itemEvery == 0 {
		s.startItem()
	}

	frame, err := s.nextFrame()
	if err != nil {
		return fmt.Errorf("source read failed: %w", err)
	}
	payload, err := s.enc.Encode(frame)
	if err != nil {
		return err
	}

	s.sink.WriteAudio(payload, s.params)
	s.aus++
	return nil
}

// startItem flips the item toggle and announces the new item
func (s *Simulator) startItem() {
	s.item++
	if s.item > 1 {
		s.toggle = !s.toggle
	}

	if s.opts.Artwork != nil {
		s.sink.WriteVisual(s.opts.Artwork)
	}

	title := fmt.Sprintf("%s (part %d)", s.title, s.item)
	s.sink.WriteTextual(&metadata.Textual{
		Text: fmt.Sprintf("%s - %s", s.artist, title),
		Items: []metadata.Item{
			{Type: metadata.ItemArtist, Text: s.artist},
			{Type: metadata.ItemTitle, Text: title},
		},
		ItemToggle:  s.toggle,
		ItemRunning: true,
	})
	s.log.WithField("item", s.item).Debug("new item")
}

// nextFrame returns exactly one AU worth of 48kHz samples
func (s *Simulator) nextFrame() ([]int32, error) {
	need := s.enc.FrameSize() * s.channels
	for len(s.pending) < need {
		n, err := s.src.Read(s.in)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("source produced no samples")
		}
		chunk := s.in[:n]
		if s.res != nil {
			if size := s.res.OutputSamplesNeeded(n) + 2*s.channels; cap(s.resampled) < size {
				s.resampled = make([]int32, size)
			}
			out := s.resampled[:cap(s.resampled)]
			chunk = out[:s.res.Resample(chunk, out)]
		}
		s.pending = append(s.pending, chunk...)
	}

	frame := make([]int32, need)
	copy(frame, s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[need:])]
	return frame, nil
}

// Close releases the encoder and the source
func (s *Simulator) Close() error {
	s.enc.Close()
	return s.src.Close()
}
