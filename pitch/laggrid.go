package pitch

import "math"

// LagGrid is the geometric sequence of candidate pitch-period lags (in
// seconds) the Viterbi search runs over, precomputed once at construction.
// Tau[0] is close to 1/MaxF0 (the shortest period, highest pitch); the
// sequence grows by a fixed ratio (1+deltaPitch) until it reaches 1/MinF0.
type LagGrid struct {
	tau        []float64
	resampFreq float64

	// NccfFirstLag/NccfLastLag are the integer-sample lag bounds on the
	// resampled signal the NCCF must be evaluated over to cover Tau with
	// margin for the upsampling filter's half-width.
	NccfFirstLag int
	NccfLastLag  int
}

// NewLagGrid builds the lag grid for the given extraction options.
func NewLagGrid(opts ExtractionOptions) *LagGrid {
	minLag := 1.0 / opts.MaxF0
	maxLag := 1.0 / opts.MinF0
	ratio := 1.0 + opts.DeltaPitch

	var tau []float64
	for t := minLag; t <= maxLag; t *= ratio {
		tau = append(tau, t)
	}
	if len(tau) == 0 {
		tau = []float64{minLag}
	}

	outerPad := float64(opts.UpsampleFilterWidth) / (2.0 * opts.ResampleFreq)
	outerMin := tau[0] - outerPad
	outerMax := tau[len(tau)-1] + outerPad

	firstLag := int(math.Ceil(opts.ResampleFreq * outerMin))
	lastLag := int(math.Floor(opts.ResampleFreq * outerMax))
	if firstLag < 1 {
		firstLag = 1
	}

	return &LagGrid{
		tau:          tau,
		resampFreq:   opts.ResampleFreq,
		NccfFirstLag: firstLag,
		NccfLastLag:  lastLag,
	}
}

// NumStates is the number of lag-grid points (Viterbi states per frame).
func (g *LagGrid) NumStates() int { return len(g.tau) }

// Tau returns the lag in seconds for state k.
func (g *LagGrid) Tau(k int) float64 { return g.tau[k] }

// SampleTimes returns, for every state, the offset in seconds from the
// first NCCF lag sample — the target-time vector handed to the
// ArbitraryResampler that moves the integer-lag NCCF onto this grid.
func (g *LagGrid) SampleTimes() []float64 {
	firstLagSeconds := float64(g.NccfFirstLag) / g.resampFreq
	times := make([]float64, len(g.tau))
	for k, t := range g.tau {
		times[k] = t - firstLagSeconds
	}
	return times
}
