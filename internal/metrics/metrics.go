// ABOUTME: OpenTelemetry instruments for the recorder and the player
// ABOUTME: Counts AUs, frames, seeks and skips; tests inject a ManualReader provider
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all timeshift metrics
const meterName = "github.com/Resonate-Protocol/timeshift-go"

// Metrics holds the instruments. All fields are safe for concurrent use.
type Metrics struct {
	// AUsWritten counts AUs committed to the store
	AUsWritten metric.Int64Counter

	// AUsDropped counts AUs lost to write failures
	AUsDropped metric.Int64Counter

	// MetadataWritten counts persisted metadata updates. Use with
	//   attribute.String("area", "textuals"|"visuals")
	MetadataWritten metric.Int64Counter

	// FramesRead counts frames handed to the decode engine
	FramesRead metric.Int64Counter

	// FramesRejected counts submissions the engine refused (retried later)
	FramesRejected metric.Int64Counter

	// DecodeErrors counts AUs the decoder failed on
	DecodeErrors metric.Int64Counter

	// Seeks and Skips count applied navigation requests
	Seeks metric.Int64Counter
	Skips metric.Int64Counter

	// SkipItems counts detected skip points
	SkipItems metric.Int64Counter

	// ResyncBytes counts bytes skipped while looking for a sync marker
	ResyncBytes metric.Int64Counter

	// SeekScan records bytes scanned per seek
	SeekScan metric.Int64Histogram

	// Recorded is the recorded duration in milliseconds
	Recorded metric.Int64Gauge

	// Lag is how far playback trails the live edge, in milliseconds
	Lag metric.Int64Gauge
}

var scanBuckets = []float64{0, 16, 256, 1024, 4096, 16384, 65536, 262144}

// New creates the instruments on mp
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.AUsWritten, "timeshift.aus.written", "AUs committed to the store."},
		{&met.AUsDropped, "timeshift.aus.dropped", "AUs dropped because the write failed."},
		{&met.MetadataWritten, "timeshift.metadata.written", "Metadata updates persisted by area."},
		{&met.FramesRead, "timeshift.frames.read", "Frames read from the store and submitted for decoding."},
		{&met.FramesRejected, "timeshift.frames.rejected", "Frame submissions refused by the decode engine."},
		{&met.DecodeErrors, "timeshift.decode.errors", "AUs the decoder failed on."},
		{&met.Seeks, "timeshift.seeks", "Seeks applied by the player."},
		{&met.Skips, "timeshift.skips", "Skip-point jumps applied by the player."},
		{&met.SkipItems, "timeshift.skip_items", "Skip points detected while recording."},
		{&met.ResyncBytes, "timeshift.resync.bytes", "Bytes skipped to regain frame sync."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.SeekScan, err = m.Int64Histogram("timeshift.seek.scan",
		metric.WithDescription("Bytes scanned from the estimated offset to the frame boundary."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(scanBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Recorded, err = m.Int64Gauge("timeshift.recorded",
		metric.WithDescription("Recorded duration."),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if met.Lag, err = m.Int64Gauge("timeshift.lag",
		metric.WithDescription("Distance between playback position and the live edge."),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns instruments that record nothing
func Noop() *Metrics {
	met, err := New(noop.NewMeterProvider())
	if err != nil {
		panic("metrics: noop provider failed: " + err.Error())
	}
	return met
}

// Area returns the attribute option for a metadata area
func Area(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("area", name))
}

// Inc adds one to c
func Inc(ctx context.Context, c metric.Int64Counter, opts ...metric.AddOption) {
	c.Add(ctx, 1, opts...)
}
