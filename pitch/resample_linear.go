package pitch

import "math"

// LinearResampler is a streaming, bandlimited resampler between two sample
// rates related by a rational ratio. It follows a windowed-sinc polyphase
// design: a fixed weight vector is precomputed for each of a small number
// of repeating output "phases", and each output sample is produced as a
// dot product of one such vector against a moving window of input history
// carried across calls.
//
// Construction is deterministic given (sampRateIn, sampRateOut,
// filterCutoff, numZeros); the precomputed tables are read-only afterwards
// and safe to share between resampler instances processing disjoint
// streams at the same rates.
type LinearResampler struct {
	sampRateIn   float64
	sampRateOut  float64
	filterCutoff float64
	numZeros     int
	windowWidth  float64

	inputSamplesInUnit  int64
	outputSamplesInUnit int64

	firstIndex []int64
	weights    [][]float64

	inputSampleOffset  int64
	outputSampleOffset int64
	inputRemainder     []float64
}

func gcdInt64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcmInt64(a, b int64) int64 {
	g := gcdInt64(a, b)
	if g == 0 {
		return 0
	}
	return a / g * b
}

// NewLinearResampler constructs a resampler from sampRateIn to sampRateOut
// (both Hz), with a low-pass cutoff at filterCutoff Hz and a filter
// half-width of numZeros zero-crossings of the underlying sinc kernel.
func NewLinearResampler(sampRateIn, sampRateOut, filterCutoff float64, numZeros int) *LinearResampler {
	r := &LinearResampler{
		sampRateIn:   sampRateIn,
		sampRateOut:  sampRateOut,
		filterCutoff: filterCutoff,
		numZeros:     numZeros,
		windowWidth:  float64(numZeros) / (2.0 * filterCutoff),
	}

	base := gcdInt64(int64(math.Round(sampRateIn)), int64(math.Round(sampRateOut)))
	if base == 0 {
		base = 1
	}
	r.inputSamplesInUnit = int64(math.Round(sampRateIn)) / base
	r.outputSamplesInUnit = int64(math.Round(sampRateOut)) / base

	r.setIndexesAndWeights()
	r.Reset()
	return r
}

// filterFunc evaluates the Hann-windowed sinc kernel at continuous time
// offset t (seconds).
func (r *LinearResampler) filterFunc(t float64) float64 {
	if math.Abs(t) > r.windowWidth {
		return 0
	}
	window := 0.5 * (1 + math.Cos(math.Pi*t/r.windowWidth))
	var filt float64
	if t != 0 {
		filt = math.Sin(2*math.Pi*r.filterCutoff*t) / (math.Pi * t)
	} else {
		filt = 2 * r.filterCutoff
	}
	return filt * window
}

// setIndexesAndWeights precomputes, for each of the outputSamplesInUnit
// repeating output phases, the first overlapping input sample index and
// the corresponding weight vector.
func (r *LinearResampler) setIndexesAndWeights() {
	n := int(r.outputSamplesInUnit)
	r.firstIndex = make([]int64, n)
	r.weights = make([][]float64, n)

	for i := 0; i < n; i++ {
		outputT := float64(i) / r.sampRateOut
		minT := outputT - r.windowWidth
		maxT := outputT + r.windowWidth
		minInputIndex := int64(math.Ceil(minT * r.sampRateIn))
		maxInputIndex := int64(math.Floor(maxT * r.sampRateIn))
		if maxInputIndex < minInputIndex {
			maxInputIndex = minInputIndex
		}
		numIndices := maxInputIndex - minInputIndex + 1

		r.firstIndex[i] = minInputIndex
		w := make([]float64, numIndices)
		for j := int64(0); j < numIndices; j++ {
			inputIndex := minInputIndex + j
			inputT := float64(inputIndex) / r.sampRateIn
			w[j] = r.filterFunc(outputT-inputT) / r.sampRateIn
		}
		r.weights[i] = w
	}
}

// getIndexes maps a global output sample index onto (firstSampIn, phase).
func (r *LinearResampler) getIndexes(sampOut int64) (firstSampIn, phase int64) {
	unitIndex := sampOut / r.outputSamplesInUnit
	phase = sampOut - unitIndex*r.outputSamplesInUnit
	firstSampIn = r.firstIndex[phase] + unitIndex*r.inputSamplesInUnit
	return
}

// numOutputSamples returns how many output samples can be produced once
// inputNumSamp total input samples have been seen. When flush is false, the
// trailing window-half-width worth of input is withheld since future
// samples could still influence it.
func (r *LinearResampler) numOutputSamples(inputNumSamp int64, flush bool) int64 {
	sampRateInI := int64(math.Round(r.sampRateIn))
	sampRateOutI := int64(math.Round(r.sampRateOut))
	tickFreq := lcmInt64(sampRateInI, sampRateOutI)
	if tickFreq == 0 {
		return 0
	}
	ticksPerInputPeriod := tickFreq / sampRateInI
	intervalLengthTicks := inputNumSamp * ticksPerInputPeriod
	if !flush {
		windowWidthTicks := int64(r.windowWidth * float64(tickFreq))
		intervalLengthTicks -= windowWidthTicks
	}
	if intervalLengthTicks <= 0 {
		return 0
	}
	ticksPerOutputPeriod := tickFreq / sampRateOutI
	lastOutputSamp := intervalLengthTicks / ticksPerOutputPeriod
	if lastOutputSamp*ticksPerOutputPeriod == intervalLengthTicks {
		lastOutputSamp--
	}
	return lastOutputSamp + 1
}

// Resample appends the output samples corresponding to the next
// time-aligned block given a new chunk of input. When flush is false, no
// sample within windowWidth seconds of the end of the known input is
// produced, since it may still be affected by samples not yet seen; a
// final call with flush=true drains the remainder, treating unseen future
// input as zero.
func (r *LinearResampler) Resample(input []float64, flush bool) []float64 {
	inLen := int64(len(input))
	totInputSamp := r.inputSampleOffset + inLen
	totOutputSamp := r.numOutputSamples(totInputSamp, flush)
	if totOutputSamp < r.outputSampleOffset {
		totOutputSamp = r.outputSampleOffset
	}

	output := make([]float64, totOutputSamp-r.outputSampleOffset)
	remLen := int64(len(r.inputRemainder))

	for sampOut := r.outputSampleOffset; sampOut < totOutputSamp; sampOut++ {
		firstSampIn, phase := r.getIndexes(sampOut)
		weights := r.weights[phase]
		firstInputIndex := firstSampIn - r.inputSampleOffset

		var acc float64
		for i, w := range weights {
			idx := firstInputIndex + int64(i)
			var sample float64
			switch {
			case idx < 0 && idx >= -remLen:
				sample = r.inputRemainder[remLen+idx]
			case idx >= 0 && idx < inLen:
				sample = input[idx]
			default:
				sample = 0
			}
			acc += sample * w
		}
		output[sampOut-r.outputSampleOffset] = acc
	}

	r.setRemainder(input)
	r.outputSampleOffset = totOutputSamp
	return output
}

// setRemainder retains exactly the tail of the input history the widest
// weight vector could still need on a future call.
func (r *LinearResampler) setRemainder(input []float64) {
	oldRemainder := r.inputRemainder
	nextInputOffset := r.inputSampleOffset + int64(len(input))

	maxNeeded := int64(math.Ceil(2*r.windowWidth*r.sampRateIn)) + 1
	remLen := maxNeeded
	if nextInputOffset < remLen {
		remLen = nextInputOffset
	}

	newRemainder := make([]float64, remLen)
	for i := int64(0); i < remLen; i++ {
		inputIndex := nextInputOffset - remLen + i
		if inputIndex >= r.inputSampleOffset {
			newRemainder[i] = input[inputIndex-r.inputSampleOffset]
		} else {
			oldIdx := inputIndex - r.inputSampleOffset + int64(len(oldRemainder))
			if oldIdx >= 0 && oldIdx < int64(len(oldRemainder)) {
				newRemainder[i] = oldRemainder[oldIdx]
			}
		}
	}
	r.inputRemainder = newRemainder
	r.inputSampleOffset = nextInputOffset
}

// Reset discards all streaming state, as if newly constructed.
func (r *LinearResampler) Reset() {
	r.inputSampleOffset = 0
	r.outputSampleOffset = 0
	r.inputRemainder = nil
}
