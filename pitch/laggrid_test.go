package pitch

import "testing"

func TestLagGridMonotonic(t *testing.T) {
	opts := DefaultExtractionOptions()
	grid := NewLagGrid(opts)

	if grid.NumStates() < 2 {
		t.Fatalf("expected multiple lag-grid states, got %d", grid.NumStates())
	}
	for k := 1; k < grid.NumStates(); k++ {
		if grid.Tau(k) <= grid.Tau(k-1) {
			t.Errorf("tau not strictly increasing at k=%d: %f <= %f", k, grid.Tau(k), grid.Tau(k-1))
		}
	}

	minLag := 1.0 / opts.MaxF0
	maxLag := 1.0 / opts.MinF0
	if grid.Tau(0) < minLag*0.99 || grid.Tau(0) > minLag*1.1 {
		t.Errorf("tau[0]=%f not close to 1/max_f0=%f", grid.Tau(0), minLag)
	}
	if grid.Tau(grid.NumStates()-1) > maxLag*1.01 {
		t.Errorf("last tau=%f exceeds 1/min_f0=%f", grid.Tau(grid.NumStates()-1), maxLag)
	}
}

func TestLagGridIntegerLagBounds(t *testing.T) {
	opts := DefaultExtractionOptions()
	grid := NewLagGrid(opts)

	if grid.NccfFirstLag < 1 {
		t.Errorf("nccf_first_lag must be >= 1, got %d", grid.NccfFirstLag)
	}
	if grid.NccfLastLag <= grid.NccfFirstLag {
		t.Errorf("nccf_last_lag (%d) must exceed nccf_first_lag (%d)", grid.NccfLastLag, grid.NccfFirstLag)
	}
}

func TestLagGridSampleTimesNonNegative(t *testing.T) {
	opts := DefaultExtractionOptions()
	grid := NewLagGrid(opts)
	times := grid.SampleTimes()
	if len(times) != grid.NumStates() {
		t.Fatalf("expected %d sample times, got %d", grid.NumStates(), len(times))
	}
	for k, tm := range times {
		if tm < -1e-9 {
			t.Errorf("sample time %d is negative: %f", k, tm)
		}
	}
}
