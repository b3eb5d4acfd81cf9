// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Carries the last input frame across chunks so block edges interpolate smoothly
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // input position of the next output frame
	prev       []int32 // last frame of the previous chunk
	havePrev   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Resample converts interleaved input at inputRate to interleaved output at
// outputRate and returns the number of samples written to output
func (r *Resampler) Resample(input []int32, output []int32) int {
	frames := len(input) / r.channels
	if frames == 0 {
		return 0
	}

	// Virtual input: the carried frame (if any) followed by this chunk
	total := frames
	if r.havePrev {
		total++
	}
	sample := func(i, ch int) int32 {
		if r.havePrev {
			if i == 0 {
				return r.prev[ch]
			}
			i--
		}
		return input[i*r.channels+ch]
	}

	outputFrames := len(output) / r.channels
	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(sample(idx, ch))
			s2 := float64(sample(idx+1, ch))
			output[outIdx*r.channels+ch] = int32(s1*(1.0-frac) + s2*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Re-base on the last input frame, which becomes the carried frame
	r.position -= float64(total - 1)
	if r.position < 0 {
		r.position = 0
	}
	copy(r.prev, input[(frames-1)*r.channels:frames*r.channels])
	r.havePrev = true

	return outIdx * r.channels
}

// Reset drops the carried frame and position
func (r *Resampler) Reset() {
	r.position = 0.0
	r.havePrev = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
