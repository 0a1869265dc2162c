package pitch

import "testing"

func TestExtractionOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ExtractionOptions)
		wantErr bool
	}{
		{"defaults ok", func(o *ExtractionOptions) {}, false},
		{"min >= max", func(o *ExtractionOptions) { o.MinF0 = 500 }, true},
		{"resample > samp", func(o *ExtractionOptions) { o.ResampleFreq = o.SampFreq * 2 }, true},
		{"resample below nyquist of max_f0", func(o *ExtractionOptions) { o.ResampleFreq = o.MaxF0 }, true},
		{"negative preemph", func(o *ExtractionOptions) { o.PreemphCoeff = -0.1 }, true},
		{"preemph at 1", func(o *ExtractionOptions) { o.PreemphCoeff = 1.0 }, true},
		{"negative ballast", func(o *ExtractionOptions) { o.NccfBallast = -1 }, true},
		{"negative latency cap", func(o *ExtractionOptions) { o.MaxFramesLatency = -1 }, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := DefaultExtractionOptions()
			c.mutate(&opts)
			err := opts.Validate()
			if c.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPostProcessOptionsValidate(t *testing.T) {
	opts := DefaultPostProcessOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options should validate: %v", err)
	}

	opts.AddPovFeature = false
	opts.AddNormalizedLogPitch = false
	opts.AddDeltaPitch = false
	opts.AddRawLogPitch = false
	if err := opts.Validate(); err == nil {
		t.Error("expected error when no output column selected")
	}
}

func TestExtractionOptionsDerivedSizes(t *testing.T) {
	opts := DefaultExtractionOptions()
	windowSize := opts.NccfWindowSize()
	shift := opts.NccfWindowShift()
	if windowSize <= 0 || shift <= 0 {
		t.Fatalf("expected positive window size/shift, got %d/%d", windowSize, shift)
	}
	if shift >= windowSize {
		t.Errorf("expected frame shift < frame length, got shift=%d size=%d", shift, windowSize)
	}
}
