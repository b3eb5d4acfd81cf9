// ABOUTME: Timeshift recording and playback of a live compressed-audio stream
// ABOUTME: Package overview and usage example
// Package timeshift records a live broadcast to a growing on-disk store and
// plays it back from any earlier point while recording continues.
//
// A Session owns one store. The producer feeds AUs and metadata through the
// Recorder; a scheduler goroutine tails the same store, decodes AUs and
// hands the audio to AudioDataListeners. The writer publishes its committed
// byte offset atomically, so the reader never sees a half-written frame.
//
// The AU sequence number is the only time axis. Metadata and skip points
// are keyed by the number of AUs committed when they arrived.
//
// Example:
//
//	s, err := timeshift.NewSession(timeshift.Config{RealTime: true})
//	s.AddAudioDataListener(output.NewSink(output.NewOto()))
//	s.SetPlayWhenReady()
//
//	rec := s.Recorder()
//	rec.WriteAudio(au, params)
//	rec.WriteTextual(label)
//
//	s.Seek(30_000)
//	s.Stop(true)
package timeshift
