package sonde

import (
	"math"
	"testing"
)

func TestCountsToVolts(t *testing.T) {
	testCases := []struct {
		name   string
		counts float64
		bits   int
		want   float64
	}{
		{"zero", 0, 12, 0},
		{"full_scale_12bit", 4096, 12, 5.0},
		{"half_scale_12bit", 2048, 12, 2.5},
		{"full_scale_16bit", 65536, 16, 5.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CountsToVolts(tc.counts, tc.bits)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CountsToVolts(%v, %d) = %v, want %v", tc.counts, tc.bits, got, tc.want)
			}
		})
	}

	if !math.IsNaN(CountsToVolts(math.NaN(), 12)) {
		t.Error("NaN counts should stay NaN")
	}
}

func TestRHIce(t *testing.T) {
	// Above freezing the conversion is the identity.
	if got := RHIce(85, 10); got != 85 {
		t.Errorf("RHIce(85, 10degC) = %v, want 85", got)
	}
	if got := RHIce(85, 0); got != 85 {
		t.Errorf("RHIce(85, 0degC) = %v, want 85", got)
	}

	// Below freezing, saturation over ice is lower than over water, so
	// RH(ice) must exceed RH(water).
	got := RHIce(85, -20)
	if got <= 85 {
		t.Errorf("RHIce(85, -20degC) = %v, want > 85", got)
	}
	// At -20 degC, es(water)/es(ice) is roughly 1.22.
	if got < 95 || got > 110 {
		t.Errorf("RHIce(85, -20degC) = %v, outside plausible range", got)
	}

	if !math.IsNaN(RHIce(math.NaN(), -5)) || !math.IsNaN(RHIce(85, math.NaN())) {
		t.Error("NaN inputs should propagate")
	}
}

func TestSaturationVapourPressures(t *testing.T) {
	// Both formulas agree near the reference value at 0 degC.
	if w := SaturationVapourPressureWater(0); math.Abs(w-6.112) > 0.01 {
		t.Errorf("es_water(0) = %v, want ~6.112", w)
	}
	if i := SaturationVapourPressureIce(0); math.Abs(i-6.112) > 0.01 {
		t.Errorf("es_ice(0) = %v, want ~6.112", i)
	}
	// Below freezing the water curve sits above the ice curve.
	for _, tC := range []float64{-5, -20, -40} {
		if SaturationVapourPressureWater(tC) <= SaturationVapourPressureIce(tC) {
			t.Errorf("es_water(%v) should exceed es_ice(%v)", tC, tC)
		}
	}
}

func TestChannelTables(t *testing.T) {
	names, err := ChannelNames(9)
	if err != nil {
		t.Fatalf("ChannelNames(9): %v", err)
	}
	if len(names) != 5 || names[4] != "Turbulence" {
		t.Errorf("package 9 channels = %v", names)
	}

	bits, err := ADCBits(6)
	if err != nil {
		t.Fatalf("ADCBits(6): %v", err)
	}
	if bits != 16 {
		t.Errorf("package 6 bits = %d, want 16", bits)
	}

	if _, err := ChannelNames(42); err == nil {
		t.Error("expected error for unknown package")
	}
	if _, err := ADCBits(42); err == nil {
		t.Error("expected error for unknown package")
	}
}

func TestAscentValidate(t *testing.T) {
	a := &Ascent{
		ID:            "test",
		SensorPackage: 5,
		TimeS:         []float64{0, 1},
		HeightKM:      []float64{0.1, 0.2},
		PressureHPa:   []float64{1000, 990},
		TdryC:         []float64{15, 14},
		TdewC:         []float64{10, 9},
		RH:            []float64{70, 75},
		WindU:         []float64{1, 1},
		WindV:         []float64{2, 2},
		MixingRatio:   []float64{8, 8},
		Channels:      map[string][]float64{"Lin": {100, 120}},
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid ascent rejected: %v", err)
	}

	a.HeightKM = []float64{0.2, 0.1}
	if err := a.Validate(); err == nil {
		t.Error("decreasing heights accepted")
	}
	a.HeightKM = []float64{0.1, 0.2}

	a.RH = []float64{70}
	if err := a.Validate(); err == nil {
		t.Error("short column accepted")
	}
	a.RH = []float64{70, 75}

	a.Channels["Lin"] = []float64{100}
	if err := a.Validate(); err == nil {
		t.Error("short channel accepted")
	}
}

func TestCalibrateChannels(t *testing.T) {
	a := &Ascent{
		ID:            "test",
		SensorPackage: 5,
		Channels: map[string][]float64{
			"Lin":    {2048},
			"Parity": {1111},
		},
	}
	if err := a.CalibrateChannels(); err != nil {
		t.Fatalf("CalibrateChannels: %v", err)
	}
	if math.Abs(a.Channels["Lin"][0]-2.5) > 1e-9 {
		t.Errorf("Lin calibrated to %v, want 2.5", a.Channels["Lin"][0])
	}
	if a.Channels["Parity"][0] != 1111 {
		t.Errorf("Parity should be untouched, got %v", a.Channels["Parity"][0])
	}
}
