package pitch

import (
	"math"

	"github.com/Idlak/idlak/idlakerr"
)

// StateInfo is the per-state record attached to one analysis frame: the
// backpointer into the previous frame's states, and the POV-path NCCF
// recorded for output once this frame's state is selected by traceback.
type StateInfo struct {
	Backpointer int32
	PovNccf     float64
}

// ViterbiFrame is one analysis frame's worth of Viterbi state, stored in a
// contiguous, append-only arena rather than as a linked list: frame t's
// predecessor is simply frame t-1 in the same slice. This keeps traceback
// and latency computation iterative by construction and makes the linear
// memory growth of a long utterance visible as a single growing slice.
type ViterbiFrame struct {
	StateInfo    []StateInfo
	CurBestState int32 // most recently asserted best state for traceback; -1 initially
}

// ViterbiArena owns the growing chain of ViterbiFrames plus the current
// forward-cost vector, and runs the per-frame Viterbi update.
type ViterbiArena struct {
	grid              *LagGrid
	interFrameFactor  float64
	softMinF0         float64
	useNaiveSearch    bool
	numStates         int
	frames            []ViterbiFrame
	forwardCost       []float64
	forwardCostRemain float64
}

// NewViterbiArena constructs an arena for a lag grid of the given size.
// useNaiveSearch selects the O(numStates^2) exact-scan inner search used
// for testing equivalence against the default branch-and-bound search.
func NewViterbiArena(grid *LagGrid, opts ExtractionOptions, useNaiveSearch bool) *ViterbiArena {
	interFrameFactor := math.Pow(math.Log(1+opts.DeltaPitch), 2) * opts.PenaltyFactor
	return &ViterbiArena{
		grid:             grid,
		interFrameFactor: interFrameFactor,
		softMinF0:        opts.SoftMinF0,
		useNaiveSearch:   useNaiveSearch,
		numStates:        grid.NumStates(),
	}
}

// NumFrames is the number of frames committed to the arena so far.
func (a *ViterbiArena) NumFrames() int { return len(a.frames) }

// ForwardCostRemainder is the cumulative diagnostic amount subtracted by
// per-frame renormalisation; it has no effect on the result, only on the
// numeric range of the live forward-cost vector.
func (a *ViterbiArena) ForwardCostRemainder() float64 { return a.forwardCostRemain }

func (a *ViterbiArena) localCost(phiPitch []float64) []float64 {
	local := make([]float64, a.numStates)
	for k := 0; k < a.numStates; k++ {
		phi := phiPitch[k]
		local[k] = 1 - phi + a.softMinF0*a.grid.Tau(k)*phi
	}
	return local
}

func transCost(j, k int, factor float64) float64 {
	d := float64(j - k)
	return d * d * factor
}

// naiveArgmin exhaustively scans k in [kLo, kHi] for the predecessor state
// minimising prevForwardCost[k] + trans(k, j). Ties break toward the
// smallest k, matching the branch-and-bound search's tie-break so the two
// are required to (and do) agree bit-for-bit.
func naiveArgmin(prevForwardCost []float64, j, kLo, kHi int, factor float64) (bestK int, bestCost float64) {
	bestK = kLo
	bestCost = prevForwardCost[kLo] + transCost(j, kLo, factor)
	for k := kLo + 1; k <= kHi; k++ {
		c := prevForwardCost[k] + transCost(j, k, factor)
		if c < bestCost {
			bestCost = c
			bestK = k
		}
	}
	return bestK, bestCost
}

// addFrameNaive computes backpointers/forward cost for every state via an
// O(numStates^2) exhaustive scan, used for the pitch_use_naive_search
// equivalence mode.
func addFrameNaive(prevForwardCost, local []float64, factor float64) (forwardCost []float64, backpointer []int32) {
	n := len(local)
	forwardCost = make([]float64, n)
	backpointer = make([]int32, n)
	for j := 0; j < n; j++ {
		k, cost := naiveArgmin(prevForwardCost, j, 0, n-1, factor)
		backpointer[j] = int32(k)
		forwardCost[j] = cost + local[j]
	}
	return forwardCost, backpointer
}

// addFrameBranchAndBound computes the same result as addFrameNaive but
// exploits the convexity of trans(k, j) = (j-k)^2*factor in (j-k): for a
// fixed previous-frame cost vector, the optimal predecessor k*(j) is
// non-decreasing in j, which makes the (k, j) cost matrix monotone. This
// lets a divide-and-conquer search solve the middle state of any
// (jLo, jHi) range by scanning only the k-range bracketed by its
// neighbours' already-known optima, then recurse on the two halves with
// correspondingly narrowed k-ranges — the branch-and-bound bound
// tightening described for this search. Each state is still visited, but
// the total k-range scanned across all states is O(numStates log numStates)
// instead of O(numStates^2).
func addFrameBranchAndBound(prevForwardCost, local []float64, factor float64) (forwardCost []float64, backpointer []int32) {
	n := len(local)
	forwardCost = make([]float64, n)
	backpointer = make([]int32, n)

	var solve func(jLo, jHi, kLo, kHi int)
	solve = func(jLo, jHi, kLo, kHi int) {
		if jLo > jHi {
			return
		}
		jMid := (jLo + jHi) / 2
		k, cost := naiveArgmin(prevForwardCost, jMid, kLo, kHi, factor)
		backpointer[jMid] = int32(k)
		forwardCost[jMid] = cost + local[jMid]

		solve(jLo, jMid-1, kLo, k)
		solve(jMid+1, jHi, k, kHi)
	}
	solve(0, n-1, 0, n-1)

	return forwardCost, backpointer
}

// AddFrame runs the Viterbi update for one new frame given its resampled
// pitch-path and POV-path NCCF vectors (both length numStates), appends the
// resulting ViterbiFrame to the arena, and renormalises the forward cost.
func (a *ViterbiArena) AddFrame(phiPitch, phiPov []float64) error {
	const op = "ViterbiArena.AddFrame"
	if len(phiPitch) != a.numStates || len(phiPov) != a.numStates {
		return idlakerr.InvariantViolation(op, "expected %d states, got pitch=%d pov=%d", a.numStates, len(phiPitch), len(phiPov))
	}

	local := a.localCost(phiPitch)

	var prev []float64
	if len(a.frames) == 0 {
		prev = make([]float64, a.numStates) // sentinel: zero cost, any predecessor
	} else {
		prev = a.forwardCost
	}

	var newCost []float64
	var backpointer []int32
	if len(a.frames) == 0 {
		// Frame 0's forward cost equals its local cost; backpointers are
		// never dereferenced but must stay in range.
		newCost = make([]float64, a.numStates)
		backpointer = make([]int32, a.numStates)
		copy(newCost, local)
	} else if a.useNaiveSearch {
		newCost, backpointer = addFrameNaive(prev, local, a.interFrameFactor)
	} else {
		newCost, backpointer = addFrameBranchAndBound(prev, local, a.interFrameFactor)
	}

	minCost := newCost[0]
	for _, c := range newCost {
		if c < minCost {
			minCost = c
		}
	}
	for i := range newCost {
		newCost[i] -= minCost
	}
	a.forwardCostRemain += minCost

	for _, c := range newCost {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return idlakerr.InvariantViolation(op, "non-finite forward cost")
		}
	}
	for _, bp := range backpointer {
		if bp < 0 || int(bp) >= a.numStates {
			return idlakerr.InvariantViolation(op, "backpointer %d out of range [0,%d)", bp, a.numStates)
		}
	}

	states := make([]StateInfo, a.numStates)
	for k := range states {
		states[k] = StateInfo{Backpointer: backpointer[k], PovNccf: phiPov[k]}
	}
	a.frames = append(a.frames, ViterbiFrame{StateInfo: states, CurBestState: -1})
	a.forwardCost = newCost
	return nil
}

// BestFinalState returns argmin of the current forward-cost vector.
func (a *ViterbiArena) BestFinalState() int {
	best := 0
	for k := 1; k < len(a.forwardCost); k++ {
		if a.forwardCost[k] < a.forwardCost[best] {
			best = k
		}
	}
	return best
}

// Traceback walks backpointers iteratively from state at the last frame,
// writing (lagIndex, povNccf) into out for every frame visited, and stops
// early as soon as a frame's already-recorded best state matches the one
// being written — no earlier frame's output can change as a result.
// out must have length NumFrames(); only entries for visited frames are
// written (earlier frames may already hold a converged value from a prior
// call).
func (a *ViterbiArena) Traceback(out []OutputRecord) {
	if len(a.frames) == 0 {
		return
	}
	state := a.BestFinalState()
	for t := len(a.frames) - 1; t >= 0; t-- {
		f := &a.frames[t]
		if f.CurBestState == int32(state) {
			break
		}
		f.CurBestState = int32(state)
		out[t] = OutputRecord{LagIndex: state, PovNccf: f.StateInfo[state].PovNccf}
		state = int(f.StateInfo[state].Backpointer)
	}
}

// Latency walks backwards from the latest frame tracking the range of
// "living" states reachable by some path through the still-ambiguous
// suffix of the trellis. At each frame t it first folds in t's
// backpointers to narrow the living-state range, then checks whether the
// range has collapsed to a single state (traceback has converged) before
// counting t against the latency budget. It returns the number of frames
// whose output is not yet guaranteed final, capped at maxFramesLatency.
func (a *ViterbiArena) Latency(maxFramesLatency int) int {
	n := len(a.frames)
	if n == 0 {
		return 0
	}
	minState, maxState := 0, a.numStates-1
	latency := 0
	for t := n - 1; t >= 0; t-- {
		f := &a.frames[t]
		newMin, newMax := a.numStates, -1
		for k := minState; k <= maxState; k++ {
			bp := int(f.StateInfo[k].Backpointer)
			if bp < newMin {
				newMin = bp
			}
			if bp > newMax {
				newMax = bp
			}
		}
		minState, maxState = newMin, newMax
		if minState == maxState {
			return latency
		}
		latency++
		if latency >= maxFramesLatency {
			return maxFramesLatency
		}
	}
	return latency
}

// OutputRecord is the per-frame traceback result: the selected lag-grid
// state and its recorded POV-path NCCF.
type OutputRecord struct {
	LagIndex int
	PovNccf  float64
}
