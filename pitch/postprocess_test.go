package pitch

import (
	"math"
	"testing"
)

func buildFinishedTracker(t *testing.T, freq, durationSec float64) *Tracker {
	t.Helper()
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	wave := sineWave(freq, opts.SampFreq, durationSec)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()
	return tracker
}

func TestPostProcessorColumnCountAndOrder(t *testing.T) {
	tracker := buildFinishedTracker(t, 220, 1.0)

	opts := DefaultPostProcessOptions()
	opts.AddPovFeature = true
	opts.AddNormalizedLogPitch = true
	opts.AddDeltaPitch = true
	opts.AddRawLogPitch = true

	pp, err := NewPostProcessor(opts, tracker, 1)
	if err != nil {
		t.Fatalf("NewPostProcessor failed: %v", err)
	}

	n := pp.NumFramesReady()
	if n == 0 {
		t.Fatal("expected ready frames")
	}
	row, err := pp.GetFrame(0)
	if err != nil {
		t.Fatalf("GetFrame failed: %v", err)
	}
	if len(row) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(row))
	}
	povNccf, pitchHz, err := tracker.GetFrame(0)
	if err != nil {
		t.Fatalf("tracker GetFrame failed: %v", err)
	}
	if want := povFeature(povNccf, opts.PovScale); row[0] != want {
		t.Errorf("column 0 = %f, want pov_feature %f", row[0], want)
	}
	if want := math.Log(pitchHz); row[3] != want {
		t.Errorf("column 3 = %f, want raw_log_pitch %f", row[3], want)
	}
}

func TestPostProcessorRawLogPitchFinite(t *testing.T) {
	tracker := buildFinishedTracker(t, 180, 1.0)

	opts := DefaultPostProcessOptions()
	opts.AddPovFeature = false
	opts.AddNormalizedLogPitch = false
	opts.AddDeltaPitch = false
	opts.AddRawLogPitch = true

	pp, err := NewPostProcessor(opts, tracker, 2)
	if err != nil {
		t.Fatalf("NewPostProcessor failed: %v", err)
	}

	n := pp.NumFramesReady()
	for i := 0; i < n; i++ {
		row, err := pp.GetFrame(i)
		if err != nil {
			t.Fatalf("GetFrame(%d) failed: %v", i, err)
		}
		if len(row) != 1 {
			t.Fatalf("expected 1 column, got %d", len(row))
		}
		if math.IsNaN(row[0]) || math.IsInf(row[0], 0) {
			t.Errorf("raw_log_pitch at frame %d is not finite: %f", i, row[0])
		}
	}
}

func TestPostProcessorConstructionFailsWithNoColumns(t *testing.T) {
	tracker := buildFinishedTracker(t, 200, 0.5)
	opts := DefaultPostProcessOptions()
	opts.AddPovFeature = false
	opts.AddNormalizedLogPitch = false
	opts.AddDeltaPitch = false
	opts.AddRawLogPitch = false

	if _, err := NewPostProcessor(opts, tracker, 0); err == nil {
		t.Fatal("expected construction to fail with no output columns selected")
	}
}

func TestPostProcessorFrameIndexOutOfRange(t *testing.T) {
	tracker := buildFinishedTracker(t, 200, 0.2)
	opts := DefaultPostProcessOptions()
	pp, err := NewPostProcessor(opts, tracker, 3)
	if err != nil {
		t.Fatalf("NewPostProcessor failed: %v", err)
	}
	if _, err := pp.GetFrame(pp.NumFramesReady()); err == nil {
		t.Error("expected UsageViolation for out-of-range frame index")
	}
}
