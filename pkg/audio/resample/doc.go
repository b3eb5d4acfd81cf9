// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates. The output
// sink uses it when a stream changes rate after the device was opened.
//
// Example:
//
//	r := resample.New(24000, 48000, 2)
//	n := r.Resample(inputSamples, outputSamples)
package resample
