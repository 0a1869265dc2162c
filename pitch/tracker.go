package pitch

import (
	"math"

	"github.com/Idlak/idlak/algorithms/common"
	"github.com/Idlak/idlak/algorithms/filters"
	"github.com/Idlak/idlak/idlakerr"
	"github.com/Idlak/idlak/logging"
)

// Tracker is the top-level streaming pitch tracker: it owns a
// LinearResampler, an ArbitraryResampler, a LagGrid, a growing chain of
// ViterbiFrames, and the streaming remainders needed to extract frames and
// estimate the NCCF ballast across arbitrary chunk boundaries.
//
// Tracker is not safe for concurrent use; an instance is driven
// synchronously by a single caller. Two instances may run in parallel on
// disjoint data without interaction.
type Tracker struct {
	opts ExtractionOptions
	grid *LagGrid

	resampler *LinearResampler
	arb       *ArbitraryResampler
	nccf      *NccfCalculator
	arena     *ViterbiArena

	frames *common.SlidingWindow

	// Ballast accumulators (§4.6 step 3 / §4.3).
	signalSumsq float64
	signalSum   float64
	sampleCount int64

	output       []OutputRecord
	finished     bool
	framesLatency int

	logger logging.Logger
}

// NewTracker validates opts and constructs a Tracker ready to accept
// waveform chunks at opts.SampFreq.
func NewTracker(opts ExtractionOptions, useNaiveSearch bool) (*Tracker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	grid := NewLagGrid(opts)
	windowSize := opts.NccfWindowSize()
	nccfCalc := NewNccfCalculator(windowSize, grid.NccfFirstLag, grid.NccfLastLag)

	numLags := grid.NccfLastLag - grid.NccfFirstLag + 1
	arb := NewArbitraryResampler(numLags, opts.ResampleFreq, opts.ResampleFreq/2, grid.SampleTimes(), opts.UpsampleFilterWidth)

	resampler := NewLinearResampler(opts.SampFreq, opts.ResampleFreq, opts.LowpassCutoff, opts.LowpassFilterWidth)

	t := &Tracker{
		opts:      opts,
		grid:      grid,
		resampler: resampler,
		arb:       arb,
		nccf:      nccfCalc,
		arena:     NewViterbiArena(grid, opts, useNaiveSearch),
		frames:    common.NewSlidingWindow(nccfCalc.FullFrameLength(), opts.NccfWindowShift()),
		logger:    logging.WithFields(logging.Fields{"component": "pitch_tracker"}),
	}
	return t, nil
}

// AcceptWaveform feeds the next chunk of input waveform at samplingRate Hz.
// It is illegal to call after InputFinished.
func (t *Tracker) AcceptWaveform(samplingRate float64, wave []float64) error {
	const op = "Tracker.AcceptWaveform"
	if t.finished {
		return idlakerr.Usage(op, "AcceptWaveform called after InputFinished")
	}
	if samplingRate != t.opts.SampFreq {
		return idlakerr.Usage(op, "sampling_rate %f does not match configured samp_freq %f", samplingRate, t.opts.SampFreq)
	}

	downsampled := t.resampler.Resample(wave, false)

	if !t.opts.NccfBallastOnline {
		t.accumulateBallast(downsampled)
	}

	newFrames := t.frames.AddSamples(downsampled)
	if len(newFrames) == 0 {
		return nil
	}

	windowSize := t.opts.NccfWindowSize()
	for _, frame := range newFrames {
		if t.opts.NccfBallastOnline {
			t.accumulateBallast(frame[:windowSize])
		}

		if err := filters.ApplyPreEmphasis(frame, t.opts.PreemphCoeff); err != nil {
			return idlakerr.InvariantViolation(op, "pre-emphasis failed: %v", err)
		}

		meanSquare := t.meanSquare()
		n := float64(windowSize)
		pitchBallast := math.Pow(meanSquare*n, 2) * t.opts.NccfBallast

		pitchNccf, povNccf, err := t.nccf.Compute(frame, pitchBallast)
		if err != nil {
			return err
		}

		phiPitch := t.arb.ResampleRow(pitchNccf)
		phiPov := t.arb.ResampleRow(povNccf)

		if err := t.arena.AddFrame(phiPitch, phiPov); err != nil {
			return err
		}
		t.output = append(t.output, OutputRecord{})
	}

	t.arena.Traceback(t.output)
	t.framesLatency = t.arena.Latency(t.opts.MaxFramesLatency)

	t.logger.Debug("accepted waveform chunk", logging.Fields{
		"new_frames":     len(newFrames),
		"frames_latency": t.framesLatency,
	})

	return nil
}

// accumulateBallast grows the running sum/sum-of-squares/count used to
// estimate the signal's mean square for the NCCF ballast term.
func (t *Tracker) accumulateBallast(samples []float64) {
	for _, s := range samples {
		t.signalSum += s
		t.signalSumsq += s * s
	}
	t.sampleCount += int64(len(samples))
}

// meanSquare is the running sample-variance estimate over the accumulated
// signal (§4.3).
func (t *Tracker) meanSquare() float64 {
	if t.sampleCount == 0 {
		return 0
	}
	n := float64(t.sampleCount)
	mean := t.signalSum / n
	return t.signalSumsq/n - mean*mean
}

// InputFinished marks the stream as complete. Idempotent: calling it twice
// has the same effect as calling it once.
func (t *Tracker) InputFinished() {
	if t.finished {
		return
	}
	t.finished = true
	t.framesLatency = 0

	numFrames := t.arena.NumFrames()
	if numFrames > 0 {
		t.logger.Debug("input finished", logging.Fields{
			"forward_cost_remainder_per_frame": t.arena.ForwardCostRemainder() / float64(numFrames),
		})
	}
}

// NumFramesReady is the number of frames whose output has converged and is
// safe to read via GetFrame.
func (t *Tracker) NumFramesReady() int {
	n := t.arena.NumFrames() - t.framesLatency
	if n < 0 {
		return 0
	}
	return n
}

// IsLastFrame reports whether frame is the final frame of a finished
// stream.
func (t *Tracker) IsLastFrame(frame int) bool {
	return t.finished && frame == t.NumFramesReady()-1
}

// Finished reports whether InputFinished has been called.
func (t *Tracker) Finished() bool { return t.finished }

// GetFrame returns (pov_nccf, pitch) for a ready frame. pitch is strictly
// positive, the reciprocal of the selected lag in seconds.
func (t *Tracker) GetFrame(frame int) (povNccf, pitchHz float64, err error) {
	const op = "Tracker.GetFrame"
	if frame < 0 || frame >= t.NumFramesReady() {
		return 0, 0, idlakerr.Usage(op, "frame %d out of range [0,%d)", frame, t.NumFramesReady())
	}
	rec := t.output[frame]
	tau := t.grid.Tau(rec.LagIndex)
	if tau <= 0 {
		return 0, 0, idlakerr.InvariantViolation(op, "non-positive lag %f at frame %d", tau, frame)
	}
	return rec.PovNccf, 1.0 / tau, nil
}
