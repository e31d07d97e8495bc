// ABOUTME: Streaming linear resampler for float sample buffers
// ABOUTME: Carries interpolation state across chunks so chunk boundaries are seamless
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It keeps the last two input frames between calls, so input may be fed
// in chunks of any size.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position is the output's fractional offset from prev towards next
	position float64
	prev     []float32
	next     []float32
	loaded   int // input frames loaded, capped at 2
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]float32, channels),
		next:       make([]float32, channels),
	}
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Resample converts interleaved input at the input rate into interleaved
// output at the output rate. It stops when input is exhausted or output is
// full and returns the number of samples consumed and produced. Unconsumed
// input must be passed again on the next call.
func (r *Resampler) Resample(input, output []float32) (consumed, produced int) {
	inFrames := len(input) / r.channels
	outFrames := len(output) / r.channels
	in, out := 0, 0

	for r.loaded < 2 && in < inFrames {
		r.push(input[in*r.channels : (in+1)*r.channels])
		in++
	}
	if r.loaded < 2 {
		return in * r.channels, 0
	}

	for {
		for r.position >= 1 {
			if in >= inFrames {
				return in * r.channels, out * r.channels
			}
			r.push(input[in*r.channels : (in+1)*r.channels])
			in++
			r.position--
		}
		if out >= outFrames {
			return in * r.channels, out * r.channels
		}

		frac := float32(r.position)
		for ch := 0; ch < r.channels; ch++ {
			output[out*r.channels+ch] = r.prev[ch]*(1-frac) + r.next[ch]*frac
		}
		out++
		r.position += r.ratio
	}
}

func (r *Resampler) push(frame []float32) {
	copy(r.prev, r.next)
	copy(r.next, frame)
	if r.loaded < 2 {
		r.loaded++
	}
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.loaded = 0
	clear(r.prev)
	clear(r.next)
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
