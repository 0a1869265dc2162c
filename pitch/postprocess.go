package pitch

import (
	"math"
	"math/rand"

	"github.com/Idlak/idlak/algorithms/common"
	"github.com/Idlak/idlak/idlakerr"
	"github.com/Idlak/idlak/logging"
)

// PostProcessor consumes a Tracker's (pov_nccf, pitch) stream and derives up
// to four feature columns: a probability-of-voicing feature, a
// weighted-mean-normalised log-pitch, a delta-log-pitch, and the raw
// log-pitch. It lags behind the tracker until a frame's normaliser window
// (shifted at the stream edges to stay inside it) and delta window lie
// wholly within the frames received, at which point the frame's value is
// final.
type PostProcessor struct {
	opts PostProcessOptions
	src  *Tracker
	rng  *rand.Rand
	logger logging.Logger

	povNccf     []float64
	povProb     []float64 // pov_t, the weight used by the normaliser
	rawLogPitch []float64

	normalized []float64
	delta      []float64

	// Incremental normaliser window state, valid for the window belonging
	// to frame nextNormalized-1 (or unset before the first call).
	windowLoaded bool
	windowLo     int
	windowHi     int
	weightedSum  float64
	povSum       float64

	nextNormalized int
	nextDelta      int

	deltaWeights []float64
}

// NewPostProcessor validates opts and wraps src. seed controls the Gaussian
// noise added to delta-pitch; callers that need reproducible output should
// pass a fixed value.
func NewPostProcessor(opts PostProcessOptions, src *Tracker, seed int64) (*PostProcessor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	w := opts.DeltaWindow
	normalizer := 0.0
	for i := 1; i <= w; i++ {
		normalizer += 2 * float64(i*i)
	}
	weights := make([]float64, 2*w+1)
	for i := -w; i <= w; i++ {
		weights[i+w] = float64(i) / normalizer
	}

	return &PostProcessor{
		opts:         opts,
		src:          src,
		rng:          rand.New(rand.NewSource(seed)),
		logger:       logging.WithFields(logging.Fields{"component": "pitch_postprocessor"}),
		deltaWeights: weights,
	}, nil
}

// povProbability computes pov_t = 1/(1+exp(-r(|n|))).
func povProbability(nccf float64) float64 {
	x := math.Abs(nccf)
	if x > 1 {
		x = 1
	}
	r := -5.2 + 5.4*math.Exp(7.5*(x-1)) + 4.8*x - 2*math.Exp(-10*x) + 4.2*math.Exp(20*(x-1))
	return 1.0 / (1.0 + math.Exp(-r))
}

// povFeature computes pov_feature_t = pov_scale * ((1.0001-clip(n,-1,1))^0.15 - 1).
func povFeature(nccf, povScale float64) float64 {
	n := common.Clamp(nccf, -1, 1)
	return povScale * (math.Pow(1.0001-n, 0.15) - 1)
}

// sync extends the raw per-frame accumulators to match every tracker frame
// that has become ready since the last call.
func (p *PostProcessor) sync() error {
	const op = "PostProcessor.sync"
	ready := p.src.NumFramesReady()
	for i := len(p.rawLogPitch); i < ready; i++ {
		povNccf, pitchHz, err := p.src.GetFrame(i)
		if err != nil {
			return err
		}
		if pitchHz <= 0 || math.IsNaN(pitchHz) {
			return idlakerr.InvariantViolation(op, "non-positive pitch %f at frame %d", pitchHz, i)
		}
		p.povNccf = append(p.povNccf, povNccf)
		p.povProb = append(p.povProb, povProbability(povNccf))
		p.rawLogPitch = append(p.rawLogPitch, math.Log(pitchHz))
	}
	p.advanceNormalized()
	p.advanceDelta()
	return nil
}

// advanceNormalized finalises every normalized_log_pitch entry whose window
// has stopped growing (or the tracker has finished), sliding the window
// incrementally rather than resumming it from scratch each time.
func (p *PostProcessor) advanceNormalized() {
	n := len(p.rawLogPitch)
	finished := p.src.Finished()
	l, r := p.opts.NormalizationLeftContext, p.opts.NormalizationRightContext

	for p.nextNormalized < n {
		t := p.nextNormalized
		lo, hi := t-l, t+r
		if lo < 0 {
			lo, hi = 0, hi-lo
		}
		if !finished && hi >= n {
			break
		}
		if hi > n-1 {
			lo, hi = max(0, lo-(hi-(n-1))), n-1
		}

		if !p.windowLoaded {
			p.weightedSum, p.povSum = 0, 0
			for i := lo; i <= hi; i++ {
				p.weightedSum += p.povProb[i] * p.rawLogPitch[i]
				p.povSum += p.povProb[i]
			}
			p.windowLo, p.windowHi = lo, hi
			p.windowLoaded = true
		} else {
			for p.windowLo < lo {
				p.weightedSum -= p.povProb[p.windowLo] * p.rawLogPitch[p.windowLo]
				p.povSum -= p.povProb[p.windowLo]
				p.windowLo++
			}
			for p.windowHi < hi {
				p.windowHi++
				p.weightedSum += p.povProb[p.windowHi] * p.rawLogPitch[p.windowHi]
				p.povSum += p.povProb[p.windowHi]
			}
		}

		var normalized float64
		if p.povSum > 0 {
			normalized = p.rawLogPitch[t] - p.weightedSum/p.povSum
		}
		p.normalized = append(p.normalized, p.opts.PitchScale*normalized)
		p.nextNormalized++
	}
}

// reflectIndex mirrors idx into [0, n) at either edge.
func reflectIndex(idx, n int) int {
	if n <= 1 {
		return 0
	}
	for idx < 0 || idx >= n {
		if idx < 0 {
			idx = -idx
		} else {
			idx = 2*(n-1) - idx
		}
	}
	return idx
}

// advanceDelta finalises every delta_log_pitch entry whose fixed-width
// derivative window is fully available (or the tracker has finished).
func (p *PostProcessor) advanceDelta() {
	n := len(p.rawLogPitch)
	finished := p.src.Finished()
	w := p.opts.DeltaWindow

	for p.nextDelta < n {
		t := p.nextDelta
		if !finished && t+w >= n {
			break
		}
		var acc float64
		for i := -w; i <= w; i++ {
			idx := reflectIndex(t+i, n)
			acc += p.deltaWeights[i+w] * p.rawLogPitch[idx]
		}
		noise := p.rng.NormFloat64() * p.opts.DeltaPitchNoiseStddev
		p.delta = append(p.delta, p.opts.DeltaPitchScale*(acc+noise))
		p.nextDelta++
	}
}

// NumFramesReady returns the number of frames whose selected output columns
// are all final.
func (p *PostProcessor) NumFramesReady() int {
	if err := p.sync(); err != nil {
		return 0
	}
	n := len(p.rawLogPitch)
	if p.opts.AddNormalizedLogPitch && p.nextNormalized < n {
		n = p.nextNormalized
	}
	if p.opts.AddDeltaPitch && p.nextDelta < n {
		n = p.nextDelta
	}
	return n
}

// GetFrame returns the enabled output columns for frame t, in the fixed
// order {pov_feature, normalized_log_pitch, delta_log_pitch, raw_log_pitch}.
func (p *PostProcessor) GetFrame(t int) ([]float64, error) {
	const op = "PostProcessor.GetFrame"
	if err := p.sync(); err != nil {
		return nil, err
	}
	if t < 0 || t >= p.NumFramesReady() {
		return nil, idlakerr.Usage(op, "frame %d out of range [0,%d)", t, p.NumFramesReady())
	}

	out := make([]float64, 0, p.opts.NumColumns())
	if p.opts.AddPovFeature {
		out = append(out, povFeature(p.povNccf[t], p.opts.PovScale))
	}
	if p.opts.AddNormalizedLogPitch {
		out = append(out, p.normalized[t])
	}
	if p.opts.AddDeltaPitch {
		out = append(out, p.delta[t])
	}
	if p.opts.AddRawLogPitch {
		out = append(out, p.rawLogPitch[t])
	}
	return out, nil
}
