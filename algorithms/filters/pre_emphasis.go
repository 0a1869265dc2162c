package filters

import "fmt"

// ApplyPreEmphasis applies a first-difference pre-emphasis in place to a
// single analysis frame, following the fixed-window convention used by
// online pitch trackers: unlike a persistent streaming filter, each frame
// is treated independently, including the extra context samples carried for
// the correlation lag search.
//
// Implements, descending over the frame so every output depends only on the
// original (not yet overwritten) predecessor sample:
//
//	w[i] -= coeff * w[i-1]   for i = len(w)-1 .. 1
//	w[0] *= 1 - coeff
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
func ApplyPreEmphasis(frame []float64, coeff float64) error {
	if coeff < 0.0 || coeff >= 1.0 {
		return fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %f", coeff)
	}
	if coeff == 0.0 || len(frame) == 0 {
		return nil
	}

	for i := len(frame) - 1; i >= 1; i-- {
		frame[i] -= coeff * frame[i-1]
	}
	frame[0] *= 1.0 - coeff

	return nil
}
