// ABOUTME: Audio decoder package for the playback engines
// ABOUTME: Provides the Decoder interface and PCM and Opus implementations
// Package decode provides AU decoders.
//
// Supports: PCM (16-bit and 24-bit) and Opus. New picks one by codec name.
//
// All decoders output int32 samples in 24-bit range.
//
// Example:
//
//	decoder, err := decode.New(format)
//	samples, err := decoder.Decode(au)
package decode
