package pitch

import (
	"math"
	"testing"
)

func TestTrackerPureSinusoid(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	wave := sineWave(220, opts.SampFreq, 1.0)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()

	n := tracker.NumFramesReady()
	if n == 0 {
		t.Fatal("expected frames for a 1-second sinusoid")
	}

	withinTolerance := 0
	for i := 0; i < n; i++ {
		povNccf, pitchHz, err := tracker.GetFrame(i)
		if err != nil {
			t.Fatalf("GetFrame(%d) failed: %v", i, err)
		}
		if pitchHz <= 0 {
			t.Errorf("frame %d: pitch must be positive, got %f", i, pitchHz)
		}
		if math.Abs(pitchHz-220) < 2 && povNccf > 0.9 {
			withinTolerance++
		}
	}
	frac := float64(withinTolerance) / float64(n)
	if frac < 0.98 {
		t.Errorf("only %.1f%% of frames within tolerance, want >= 98%%", frac*100)
	}
}

func TestTrackerWhiteNoise(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	wave := whiteNoise(int(opts.SampFreq*1.0), 12345)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()

	n := tracker.NumFramesReady()
	if n == 0 {
		t.Fatal("expected frames for 1 second of noise")
	}

	sumPov := 0.0
	for i := 0; i < n; i++ {
		povNccf, _, err := tracker.GetFrame(i)
		if err != nil {
			t.Fatalf("GetFrame(%d) failed: %v", i, err)
		}
		if math.Abs(povNccf) > 1.01 {
			t.Errorf("frame %d: |pov_nccf|=%f exceeds 1.01", i, povNccf)
		}
		sumPov += math.Abs(povNccf)
	}
	if mean := sumPov / float64(n); mean >= 0.3 {
		t.Errorf("mean |pov_nccf|=%f for white noise, want < 0.3", mean)
	}
}

func TestTrackerSilenceNoNaN(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	wave := make([]float64, int(opts.SampFreq*0.5))
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform on silence failed: %v", err)
	}
	tracker.InputFinished()

	n := tracker.NumFramesReady()
	for i := 0; i < n; i++ {
		povNccf, pitchHz, err := tracker.GetFrame(i)
		if err != nil {
			t.Fatalf("GetFrame(%d) failed: %v", i, err)
		}
		if math.IsNaN(povNccf) || math.IsNaN(pitchHz) {
			t.Errorf("frame %d produced NaN: pov=%f pitch=%f", i, povNccf, pitchHz)
		}
	}
}

func TestTrackerStreamingEquivalence(t *testing.T) {
	opts := DefaultExtractionOptions()
	opts.NccfBallastOnline = false
	wave := sweepWave(100, 400, opts.SampFreq, 2.0)

	single, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if err := single.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	single.InputFinished()

	chunked, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	mid := len(wave) / 2
	if err := chunked.AcceptWaveform(opts.SampFreq, wave[:mid]); err != nil {
		t.Fatalf("AcceptWaveform (chunk 1) failed: %v", err)
	}
	if err := chunked.AcceptWaveform(opts.SampFreq, wave[mid:]); err != nil {
		t.Fatalf("AcceptWaveform (chunk 2) failed: %v", err)
	}
	chunked.InputFinished()

	nSingle := single.NumFramesReady()
	nChunked := chunked.NumFramesReady()
	if nSingle != nChunked {
		t.Fatalf("frame count mismatch: single=%d chunked=%d", nSingle, nChunked)
	}

	for i := 0; i < nSingle; i++ {
		povS, pitchS, err := single.GetFrame(i)
		if err != nil {
			t.Fatalf("single GetFrame(%d): %v", i, err)
		}
		povC, pitchC, err := chunked.GetFrame(i)
		if err != nil {
			t.Fatalf("chunked GetFrame(%d): %v", i, err)
		}
		if math.Abs(povS-povC) > 1e-6 || math.Abs(pitchS-pitchC) > 1e-6 {
			t.Errorf("frame %d differs: single=(%f,%f) chunked=(%f,%f)", i, povS, pitchS, povC, pitchC)
		}
	}
}

func TestTrackerShortInputZeroFrames(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	wave := make([]float64, 100)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()

	if n := tracker.NumFramesReady(); n != 0 {
		t.Errorf("expected 0 frames ready for 100 samples at 16kHz, got %d", n)
	}
}

func TestTrackerFinishedThenAccept(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	wave := sineWave(150, opts.SampFreq, 0.1)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()

	err = tracker.AcceptWaveform(opts.SampFreq, wave)
	if err == nil {
		t.Fatal("expected UsageViolation after InputFinished, got nil")
	}
	if !tracker.Finished() {
		t.Error("tracker should remain in the finished state after a rejected AcceptWaveform")
	}
}

func TestTrackerWrongSampleRate(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	err = tracker.AcceptWaveform(opts.SampFreq*2, []float64{0, 0, 0})
	if err == nil {
		t.Error("expected UsageViolation for mismatched sampling rate")
	}
}

func TestTrackerInputFinishedIdempotent(t *testing.T) {
	opts := DefaultExtractionOptions()
	tracker, err := NewTracker(opts, false)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	wave := sineWave(150, opts.SampFreq, 0.2)
	if err := tracker.AcceptWaveform(opts.SampFreq, wave); err != nil {
		t.Fatalf("AcceptWaveform failed: %v", err)
	}
	tracker.InputFinished()
	n1 := tracker.NumFramesReady()
	tracker.InputFinished()
	n2 := tracker.NumFramesReady()
	if n1 != n2 {
		t.Errorf("InputFinished not idempotent: %d != %d", n1, n2)
	}
}
