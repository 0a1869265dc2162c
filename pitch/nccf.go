package pitch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Idlak/idlak/algorithms/common"
	"github.com/Idlak/idlak/idlakerr"
)

// maxNccfOvershoot documents the acceptable floating-point slack beyond the
// mathematical |NCCF| <= 1.0 bound; implementations must not tighten this.
const maxNccfOvershoot = 1.01

// NccfCalculator computes the Normalised Cross-Correlation Function of a
// single analysis window across an integer lag range, at two ballast
// levels: one damped for pitch-path search stability, one undamped for
// probability-of-voicing estimation.
type NccfCalculator struct {
	windowSize int
	firstLag   int
	lastLag    int
}

// NewNccfCalculator constructs a calculator for windows of windowSize
// samples correlated against lags in [firstLag, lastLag].
func NewNccfCalculator(windowSize, firstLag, lastLag int) *NccfCalculator {
	return &NccfCalculator{windowSize: windowSize, firstLag: firstLag, lastLag: lastLag}
}

// FullFrameLength is the window length a caller must supply: the analysis
// window plus the longest lag needed to correlate against.
func (c *NccfCalculator) FullFrameLength() int {
	return c.windowSize + c.lastLag
}

// correlation holds the per-lag numerator and normalising product needed to
// compute both ballast variants without recomputing them.
type correlation struct {
	inner []float64 // inner(L), indexed by L-firstLag
	norm  []float64 // e1*e2(L), indexed by L-firstLag
}

// computeCorrelation mean-centres the frame and computes, for every integer
// lag in range, the raw correlation numerator and the energy-product
// denominator base, ahead of ballast application.
func (c *NccfCalculator) computeCorrelation(frame []float64) correlation {
	n := c.windowSize
	mean := common.Mean(frame[:n])

	centred := make([]float64, len(frame))
	for i, v := range frame {
		centred[i] = v - mean
	}

	e1 := floats.Dot(centred[:n], centred[:n])

	numLags := c.lastLag - c.firstLag + 1
	out := correlation{
		inner: make([]float64, numLags),
		norm:  make([]float64, numLags),
	}
	for li := 0; li < numLags; li++ {
		lag := c.firstLag + li
		shifted := centred[lag : lag+n]
		out.inner[li] = floats.Dot(centred[:n], shifted)
		e2 := floats.Dot(shifted, shifted)
		out.norm[li] = e1 * e2
	}
	return out
}

// computeNccf evaluates NCCF(L) for L in [firstLag, lastLag] at the given
// ballast, returning one value per lag. ballast is squared-units scaled by
// the caller per §4.3 (nccf_ballast_pitch for the pitch path, 0 for POV).
func (c *correlation) computeNccf(ballast float64) ([]float64, error) {
	out := make([]float64, len(c.inner))
	for i := range out {
		denomSq := c.norm[i] + ballast
		var val float64
		if denomSq > 0 {
			val = c.inner[i] / math.Sqrt(denomSq)
		} else if c.inner[i] != 0 {
			return nil, idlakerr.InvariantViolation("NccfCalculator.ComputeNccf",
				"zero denominator with non-zero numerator at lag offset %d", i)
		}
		if math.Abs(val) > maxNccfOvershoot {
			return nil, idlakerr.InvariantViolation("NccfCalculator.ComputeNccf",
				"|NCCF|=%f exceeds %f at lag offset %d", val, maxNccfOvershoot, i)
		}
		out[i] = val
	}
	return out, nil
}

// Compute returns the pitch-path and POV-path NCCF vectors for frame, given
// the pitch-path ballast term (already scaled by mean-square energy per
// §4.3; the POV path always uses zero ballast).
func (c *NccfCalculator) Compute(frame []float64, pitchBallast float64) (pitchNccf, povNccf []float64, err error) {
	if len(frame) < c.FullFrameLength() {
		return nil, nil, idlakerr.InvariantViolation("NccfCalculator.Compute",
			"frame length %d shorter than required %d", len(frame), c.FullFrameLength())
	}
	corr := c.computeCorrelation(frame)
	pitchNccf, err = corr.computeNccf(pitchBallast)
	if err != nil {
		return nil, nil, err
	}
	povNccf, err = corr.computeNccf(0)
	if err != nil {
		return nil, nil, err
	}
	return pitchNccf, povNccf, nil
}
