package charge

import (
	"math"
	"testing"
)

func TestAscentRate(t *testing.T) {
	// 5 m/s constant climb: 0.05 km every 10 s.
	times := []float64{0, 10, 20, 30}
	heights := []float64{0.00, 0.05, 0.10, 0.15}

	rate, err := AscentRate(times, heights)
	if err != nil {
		t.Fatalf("AscentRate() error: %v", err)
	}
	for i, r := range rate {
		if math.Abs(r-5) > 1e-9 {
			t.Errorf("rate[%d] = %f, want 5", i, r)
		}
	}
}

func TestAscentRateEdgeCases(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		if _, err := AscentRate([]float64{0, 1}, []float64{0}); err == nil {
			t.Error("expected error for mismatched lengths")
		}
	})

	t.Run("single sample", func(t *testing.T) {
		rate, err := AscentRate([]float64{0}, []float64{1})
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(rate[0]) {
			t.Errorf("rate[0] = %f, want NaN", rate[0])
		}
	})

	t.Run("repeated timestamp", func(t *testing.T) {
		rate, err := AscentRate([]float64{0, 0}, []float64{0, 1})
		if err != nil {
			t.Fatal(err)
		}
		if !math.IsNaN(rate[0]) || !math.IsNaN(rate[1]) {
			t.Errorf("rates = %v, want NaN at zero dt", rate)
		}
	})
}

func TestSpaceChargeDensity(t *testing.T) {
	// 5 m/s climb with a 1e-3 m2 inlet sweeps 5e-3 m3/s, so 10 pA
	// is 2000 pC/m3.
	times := []float64{0, 10, 20}
	heights := []float64{0.00, 0.05, 0.10}
	currents := []float64{10, 10, math.NaN()}

	dens, err := SpaceChargeDensity(currents, times, heights, 1e-3)
	if err != nil {
		t.Fatalf("SpaceChargeDensity() error: %v", err)
	}
	if math.Abs(dens[0]-2000) > 1e-6 || math.Abs(dens[1]-2000) > 1e-6 {
		t.Errorf("density = %v, want 2000 for finite samples", dens[:2])
	}
	if !math.IsNaN(dens[2]) {
		t.Errorf("density[2] = %f, want NaN for NaN current", dens[2])
	}
}

func TestSpaceChargeDensityDescent(t *testing.T) {
	times := []float64{0, 10, 20}
	heights := []float64{0.10, 0.05, 0.00}
	currents := []float64{10, 10, 10}

	dens, err := SpaceChargeDensity(currents, times, heights, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range dens {
		if !math.IsNaN(d) {
			t.Errorf("density[%d] = %f, want NaN while descending", i, d)
		}
	}
}

func TestSpaceChargeDensityBadArea(t *testing.T) {
	if _, err := SpaceChargeDensity([]float64{1}, []float64{0}, []float64{0}, 0); err == nil {
		t.Error("expected error for non-positive collection area")
	}
}
