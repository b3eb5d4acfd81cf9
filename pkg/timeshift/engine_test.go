// ABOUTME: Tests for the decode engines
// ABOUTME: Covers slot accounting, flushing, dropped AUs and backend selection
package timeshift

import (
	"testing"
	"time"

	"github.com/Resonate-Protocol/timeshift-go/internal/metrics"
	"github.com/Resonate-Protocol/timeshift-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
)

func newPCMDecoder(t *testing.T) decode.Decoder {
	t.Helper()
	dec, err := decode.NewPCM(pcmStereo.Format())
	if err != nil {
		t.Fatalf("NewPCM failed: %v", err)
	}
	return dec
}

func TestSyncEngineSlots(t *testing.T) {
	e := NewSyncEngine(newPCMDecoder(t), pcmStereo.Format(), pcmStereo.MaxPayload(), 2, metrics.Noop())
	defer e.Release()

	au := pcmAU(pcmStereo, 1)
	if !e.Submit(au, 0) || !e.Submit(au, 20000) {
		t.Fatal("expected two AUs to be accepted")
	}
	if e.AcquireInputSlot() {
		t.Error("expected no free slot with two undelivered buffers")
	}
	if e.Submit(au, 40000) {
		t.Error("expected Submit to refuse when full")
	}

	buf, ok := e.AcquireOutput()
	if !ok {
		t.Fatal("expected a decoded buffer")
	}
	if buf.Timestamp != 0 {
		t.Errorf("expected timestamp 0, got %d", buf.Timestamp)
	}
	if buf.Frames() != 960 {
		t.Errorf("expected 960 frames, got %d", buf.Frames())
	}
	if !e.AcquireInputSlot() {
		t.Error("expected a free slot after output")
	}

	e.Flush()
	if _, ok := e.AcquireOutput(); ok {
		t.Error("expected no output after Flush")
	}
}

func TestSyncEngineDropsOversizedAU(t *testing.T) {
	e := NewSyncEngine(newPCMDecoder(t), pcmStereo.Format(), 100, 2, metrics.Noop())
	defer e.Release()

	if !e.Submit(pcmAU(pcmStereo, 1), 0) {
		t.Fatal("oversized AU should be consumed, not retried")
	}
	if _, ok := e.AcquireOutput(); ok {
		t.Error("expected oversized AU to be dropped")
	}
	if !e.Submit(make([]byte, 8), 20000) {
		t.Fatal("expected small AU to be accepted")
	}
	if buf, ok := e.AcquireOutput(); !ok || buf.Timestamp != 20000 {
		t.Errorf("expected buffer at 20000, got %v %v", buf.Timestamp, ok)
	}
}

func waitOutput(t *testing.T, e Engine) int64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if buf, ok := e.AcquireOutput(); ok {
			return buf.Timestamp
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for decoded output")
	return 0
}

func TestPipelinedEngine(t *testing.T) {
	e := NewPipelinedEngine(newPCMDecoder(t), pcmStereo.Format(), pcmStereo.MaxPayload(), 4, metrics.Noop())

	au := pcmAU(pcmStereo, 1)
	if !e.Submit(au, 0) {
		t.Fatal("expected Submit to accept")
	}
	if ts := waitOutput(t, e); ts != 0 {
		t.Errorf("expected timestamp 0, got %d", ts)
	}

	e.Flush()
	if !e.Submit(au, 40000) {
		t.Fatal("expected Submit to accept after Flush")
	}
	if ts := waitOutput(t, e); ts != 40000 {
		t.Errorf("expected timestamp 40000 after flush, got %d", ts)
	}

	if err := e.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if err := e.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}
}

func TestNewEngine(t *testing.T) {
	m := metrics.Noop()

	for _, kind := range []EngineKind{EngineSync, EnginePipelined} {
		e, err := NewEngine(kind, pcmStereo, decode.New, 4, m)
		if err != nil {
			t.Fatalf("NewEngine(%s) failed: %v", kind, err)
		}
		e.Release()
	}

	if _, err := NewEngine("bogus", pcmStereo, decode.New, 4, m); err == nil {
		t.Error("expected error for unknown engine")
	}

	aac := store.Params{Content: store.ContentAAC, SampleRate: 48000, Channels: 2}
	if _, err := NewEngine(EngineSync, aac, decode.New, 4, m); err == nil {
		t.Error("expected error when no decoder handles the stream")
	}
}
