package pitch

import (
	"math"

	"github.com/Idlak/idlak/idlakerr"
)

// ExtractionOptions configures the streaming pitch tracker. All values are
// fixed at construction; nothing here is mutated once a Tracker is built.
//
// Defaults mirror the values found effective in the online NCCF/Viterbi
// pitch tracking literature (Ghahremani et al., "A pitch extraction
// algorithm tuned for automatic speech recognition", ICASSP 2014).
type ExtractionOptions struct {
	SampFreq float64 `json:"samp_freq"`

	FrameShiftMs  float64 `json:"frame_shift_ms"`
	FrameLengthMs float64 `json:"frame_length_ms"`
	PreemphCoeff  float64 `json:"preemph_coeff"`

	MinF0 float64 `json:"min_f0"`
	MaxF0 float64 `json:"max_f0"`

	SoftMinF0     float64 `json:"soft_min_f0"`
	PenaltyFactor float64 `json:"penalty_factor"`

	LowpassCutoff      float64 `json:"lowpass_cutoff"`
	LowpassFilterWidth int     `json:"lowpass_filter_width"`
	ResampleFreq       float64 `json:"resample_freq"`

	DeltaPitch          float64 `json:"delta_pitch"`
	UpsampleFilterWidth int     `json:"upsample_filter_width"`

	NccfBallast       float64 `json:"nccf_ballast"`
	NccfBallastOnline bool    `json:"nccf_ballast_online"`

	MaxFramesLatency int `json:"max_frames_latency"`
	FramesPerChunk   int `json:"frames_per_chunk"`
}

// DefaultExtractionOptions returns the standard 16kHz-speech configuration.
func DefaultExtractionOptions() ExtractionOptions {
	return ExtractionOptions{
		SampFreq:            16000,
		FrameShiftMs:        10.0,
		FrameLengthMs:       25.0,
		PreemphCoeff:        0.0,
		MinF0:               50.0,
		MaxF0:               400.0,
		SoftMinF0:           10.0,
		PenaltyFactor:       0.1,
		LowpassCutoff:       1000,
		LowpassFilterWidth:  1,
		ResampleFreq:        4000,
		DeltaPitch:          0.005,
		UpsampleFilterWidth: 5,
		NccfBallast:         7000.0,
		NccfBallastOnline:   false,
		MaxFramesLatency:    0,
		FramesPerChunk:      0,
	}
}

// NccfWindowSize is the number of resampled samples in one analysis frame,
// excluding the extra context needed for the lag search.
func (o ExtractionOptions) NccfWindowSize() int {
	return int(math.Round(o.ResampleFreq * o.FrameLengthMs / 1000.0))
}

// NccfWindowShift is the frame period in resampled samples.
func (o ExtractionOptions) NccfWindowShift() int {
	return int(math.Round(o.ResampleFreq * o.FrameShiftMs / 1000.0))
}

// Validate checks the invariants named in the configuration model, returning
// a ConfigurationInvalid error describing the first violation found.
func (o ExtractionOptions) Validate() error {
	const op = "ExtractionOptions.Validate"

	switch {
	case o.SampFreq <= 0:
		return idlakerr.Config(op, "samp_freq must be positive, got %f", o.SampFreq)
	case o.ResampleFreq <= 0 || o.ResampleFreq > o.SampFreq:
		return idlakerr.Config(op, "resample_freq (%f) must be in (0, samp_freq=%f]", o.ResampleFreq, o.SampFreq)
	case o.MinF0 <= 0:
		return idlakerr.Config(op, "min_f0 must be positive, got %f", o.MinF0)
	case o.MinF0 >= o.MaxF0:
		return idlakerr.Config(op, "min_f0 (%f) must be < max_f0 (%f)", o.MinF0, o.MaxF0)
	case o.MaxF0 >= o.ResampleFreq/2:
		return idlakerr.Config(op, "max_f0 (%f) must be < resample_freq/2 (%f)", o.MaxF0, o.ResampleFreq/2)
	case o.ResampleFreq < 2*o.MaxF0:
		return idlakerr.Config(op, "resample_freq (%f) must be >= 2*max_f0 (%f)", o.ResampleFreq, 2*o.MaxF0)
	case o.FrameLengthMs <= 0 || o.FrameShiftMs <= 0:
		return idlakerr.Config(op, "frame_length_ms and frame_shift_ms must be positive")
	case o.DeltaPitch <= 0:
		return idlakerr.Config(op, "delta_pitch must be positive, got %f", o.DeltaPitch)
	case o.NccfBallast < 0:
		return idlakerr.Config(op, "nccf_ballast must be non-negative, got %f", o.NccfBallast)
	case o.PreemphCoeff < 0 || o.PreemphCoeff >= 1:
		return idlakerr.Config(op, "preemph_coeff must be in [0, 1), got %f", o.PreemphCoeff)
	case o.MaxFramesLatency < 0:
		return idlakerr.Config(op, "max_frames_latency must be non-negative, got %d", o.MaxFramesLatency)
	case o.FramesPerChunk < 0:
		return idlakerr.Config(op, "frames_per_chunk must be non-negative, got %d", o.FramesPerChunk)
	}
	return nil
}

// PostProcessOptions configures the post-processor that turns the tracker's
// (pov_nccf, pitch) stream into up to four derived feature columns.
type PostProcessOptions struct {
	PitchScale            float64 `json:"pitch_scale"`
	PovScale              float64 `json:"pov_scale"`
	DeltaPitchScale       float64 `json:"delta_pitch_scale"`
	DeltaPitchNoiseStddev float64 `json:"delta_pitch_noise_stddev"`

	NormalizationLeftContext  int `json:"normalization_left_context"`
	NormalizationRightContext int `json:"normalization_right_context"`
	DeltaWindow               int `json:"delta_window"`

	AddPovFeature         bool `json:"add_pov_feature"`
	AddNormalizedLogPitch bool `json:"add_normalized_log_pitch"`
	AddDeltaPitch         bool `json:"add_delta_pitch"`
	AddRawLogPitch        bool `json:"add_raw_log_pitch"`
}

// DefaultPostProcessOptions returns the standard three-column feature
// configuration (pov_feature, normalized_log_pitch, delta_log_pitch).
func DefaultPostProcessOptions() PostProcessOptions {
	return PostProcessOptions{
		PitchScale:                2.0,
		PovScale:                  2.0,
		DeltaPitchScale:           10.0,
		DeltaPitchNoiseStddev:     0.005,
		NormalizationLeftContext:  75,
		NormalizationRightContext: 75,
		DeltaWindow:               2,
		AddPovFeature:             true,
		AddNormalizedLogPitch:     true,
		AddDeltaPitch:             true,
		AddRawLogPitch:            false,
	}
}

// Validate checks that at least one output column is selected.
func (o PostProcessOptions) Validate() error {
	const op = "PostProcessOptions.Validate"
	if !o.AddPovFeature && !o.AddNormalizedLogPitch && !o.AddDeltaPitch && !o.AddRawLogPitch {
		return idlakerr.Config(op, "at least one of add_pov_feature/add_normalized_log_pitch/add_delta_pitch/add_raw_log_pitch must be set")
	}
	if o.NormalizationLeftContext < 0 || o.NormalizationRightContext < 0 {
		return idlakerr.Config(op, "normalization contexts must be non-negative")
	}
	if o.DeltaWindow < 1 {
		return idlakerr.Config(op, "delta_window must be >= 1, got %d", o.DeltaWindow)
	}
	return nil
}

// NumColumns returns the number of enabled output columns.
func (o PostProcessOptions) NumColumns() int {
	n := 0
	if o.AddPovFeature {
		n++
	}
	if o.AddNormalizedLogPitch {
		n++
	}
	if o.AddDeltaPitch {
		n++
	}
	if o.AddRawLogPitch {
		n++
	}
	return n
}
