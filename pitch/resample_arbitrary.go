package pitch

import "math"

// ArbitraryResampler resamples a uniformly-sampled short signal of fixed
// length onto a fixed set of non-uniform target sample times, precomputing
// a sparse weights table once at construction. It is used to move the NCCF
// curve, sampled at integer lags on the resampled signal, onto the
// geometrically-spaced lag grid.
type ArbitraryResampler struct {
	numSamplesIn int
	sampRateIn   float64
	filterCutoff float64
	numZeros     int
	windowWidth  float64

	firstIndex []int
	weights    [][]float64
}

// NewArbitraryResampler precomputes the weight table for resampling rows of
// numSamplesIn uniform samples (at sampRateIn Hz) onto sampleTimes (seconds,
// offsets from sample 0), using a low-pass cutoff of filterCutoff Hz and a
// filter half-width of numZeros zero-crossings.
func NewArbitraryResampler(numSamplesIn int, sampRateIn, filterCutoff float64, sampleTimes []float64, numZeros int) *ArbitraryResampler {
	r := &ArbitraryResampler{
		numSamplesIn: numSamplesIn,
		sampRateIn:   sampRateIn,
		filterCutoff: filterCutoff,
		numZeros:     numZeros,
		windowWidth:  float64(numZeros) / (2.0 * filterCutoff),
	}
	r.setIndexesAndWeights(sampleTimes)
	return r
}

func (r *ArbitraryResampler) filterFunc(t float64) float64 {
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

func (r *ArbitraryResampler) setIndexesAndWeights(sampleTimes []float64) {
	r.firstIndex = make([]int, len(sampleTimes))
	r.weights = make([][]float64, len(sampleTimes))

	for i, t := range sampleTimes {
		minT := t - r.windowWidth
		maxT := t + r.windowWidth
		minInputIndex := int(math.Ceil(minT * r.sampRateIn))
		maxInputIndex := int(math.Floor(maxT * r.sampRateIn))
		if minInputIndex < 0 {
			minInputIndex = 0
		}
		if maxInputIndex > r.numSamplesIn-1 {
			maxInputIndex = r.numSamplesIn - 1
		}
		if maxInputIndex < minInputIndex {
			maxInputIndex = minInputIndex - 1 // empty range
		}
		numIndices := maxInputIndex - minInputIndex + 1
		if numIndices < 0 {
			numIndices = 0
		}

		r.firstIndex[i] = minInputIndex
		w := make([]float64, numIndices)
		for j := 0; j < numIndices; j++ {
			inputIndex := minInputIndex + j
			inputT := float64(inputIndex) / r.sampRateIn
			w[j] = r.filterFunc(t-inputT) / r.sampRateIn
		}
		r.weights[i] = w
	}
}

// NumSamplesIn is the fixed row length Resample expects.
func (r *ArbitraryResampler) NumSamplesIn() int { return r.numSamplesIn }

// NumSamplesOut is the fixed row length Resample produces.
func (r *ArbitraryResampler) NumSamplesOut() int { return len(r.weights) }

// Resample applies the precomputed sparse weights to each row of matrixIn
// (each of length NumSamplesIn), producing rows of length NumSamplesOut.
func (r *ArbitraryResampler) Resample(matrixIn [][]float64) [][]float64 {
	out := make([][]float64, len(matrixIn))
	for row, in := range matrixIn {
		out[row] = r.resampleRow(in)
	}
	return out
}

// ResampleRow applies the precomputed weights to a single row.
func (r *ArbitraryResampler) ResampleRow(in []float64) []float64 {
	return r.resampleRow(in)
}

func (r *ArbitraryResampler) resampleRow(in []float64) []float64 {
	out := make([]float64, len(r.weights))
	for i, w := range r.weights {
		first := r.firstIndex[i]
		var acc float64
		for j, wj := range w {
			acc += in[first+j] * wj
		}
		out[i] = acc
	}
	return out
}
