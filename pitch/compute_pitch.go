package pitch

import "github.com/Idlak/idlak/logging"

// ComputePitch is the batch driver over Tracker: it feeds wave through in
// one shot or in frames_per_chunk-sized pieces, finishes the stream, and
// returns the dense (T x 2) [pov_nccf, pitch] matrix. An input too short to
// produce any frame is not an error: a warning is logged and an empty
// matrix returned.
func ComputePitch(opts ExtractionOptions, wave []float64, useNaiveSearch bool) ([][]float64, error) {
	tracker, err := NewTracker(opts, useNaiveSearch)
	if err != nil {
		return nil, err
	}
	if err := feedChunked(tracker, opts, wave); err != nil {
		return nil, err
	}
	tracker.InputFinished()

	n := tracker.NumFramesReady()
	if n == 0 {
		logging.Warn("compute_pitch produced zero frames", logging.Fields{"num_samples": len(wave)})
		return [][]float64{}, nil
	}

	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		povNccf, pitchHz, err := tracker.GetFrame(t)
		if err != nil {
			return nil, err
		}
		out[t] = []float64{povNccf, pitchHz}
	}
	return out, nil
}

// ComputePitchFeatures runs ComputePitch's tracker stage followed by a
// PostProcessor, returning the dense (T x C) feature matrix where C is
// determined by postOpts' add_* flags. seed controls the post-processor's
// delta-pitch noise for reproducibility.
func ComputePitchFeatures(opts ExtractionOptions, postOpts PostProcessOptions, wave []float64, useNaiveSearch bool, seed int64) ([][]float64, error) {
	tracker, err := NewTracker(opts, useNaiveSearch)
	if err != nil {
		return nil, err
	}
	if err := feedChunked(tracker, opts, wave); err != nil {
		return nil, err
	}
	tracker.InputFinished()

	pp, err := NewPostProcessor(postOpts, tracker, seed)
	if err != nil {
		return nil, err
	}

	n := pp.NumFramesReady()
	if n == 0 {
		logging.Warn("compute_pitch_features produced zero frames", logging.Fields{"num_samples": len(wave)})
		return [][]float64{}, nil
	}

	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		row, err := pp.GetFrame(t)
		if err != nil {
			return nil, err
		}
		out[t] = row
	}
	return out, nil
}

// feedChunked delivers wave to tracker in one call if opts.FramesPerChunk is
// zero, otherwise in frames_per_chunk*samp_freq*frame_shift_ms/1000-sample
// pieces (the last piece taking whatever remains).
func feedChunked(tracker *Tracker, opts ExtractionOptions, wave []float64) error {
	if opts.FramesPerChunk == 0 {
		return tracker.AcceptWaveform(opts.SampFreq, wave)
	}

	chunkSamples := int(float64(opts.FramesPerChunk) * opts.SampFreq * opts.FrameShiftMs / 1000.0)
	if chunkSamples <= 0 {
		chunkSamples = len(wave)
	}
	for start := 0; start < len(wave); start += chunkSamples {
		end := start + chunkSamples
		if end > len(wave) {
			end = len(wave)
		}
		if err := tracker.AcceptWaveform(opts.SampFreq, wave[start:end]); err != nil {
			return err
		}
	}
	return nil
}
