// ABOUTME: Audio encoder package for producing AUs from PCM
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode provides audio encoders for various codecs.
//
// Supports: PCM (16-bit and 24-bit), Opus. Both produce 20 ms AUs.
//
// All encoders accept int32 samples in 24-bit range.
//
// Example:
//
//	encoder, err := encode.New(format)
//	au, err := encoder.Encode(samples[:encoder.FrameSize()*channels])
package encode
