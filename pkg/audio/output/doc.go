// ABOUTME: Audio output package for playing decoded timeshift audio
// ABOUTME: Provides the Output interface, an oto backend and a Sink adapter
// Package output provides audio playback.
//
// Oto is the sound-card backend. Sink adapts any Output to the player's
// audio-data listener and converts rate and channel layout when the stream
// changes format after the device was opened.
//
// Example:
//
//	sink := output.NewSink(output.NewOto())
//	session.AddAudioDataListener(sink)
package output
