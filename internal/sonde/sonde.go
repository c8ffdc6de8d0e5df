// Package sonde holds the radiosonde ascent data model and the sensor
// calibration applied between raw telemetry counts and physical units.
package sonde

import (
	"fmt"
	"time"
)

// MissingValue is the sentinel the sounding system writes for absent
// samples in raw logs. Parsed values equal to it become NaN.
const MissingValue = -32768

// channelNames maps a sensor package number to the real names of its
// bespoke telemetry channels, in raw-column order. Packages up to 8 fly
// the PLL vibrating-wire variant; later packages carry a turbulence
// channel instead.
var channelNames = map[int][]string{
	0:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	1:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	2:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	3:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	4:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	5:  {"Lin", "Log", "Cyan/PLL", "IR", "Parity"},
	6:  {"Lin", "Log/Turbulence", "Cyan", "IR/Parity"},
	7:  {"Lin", "Log/Turbulence", "Cyan", "IR/Parity"},
	8:  {"Lin", "Log/Turbulence", "Cyan", "IR/Parity"},
	9:  {"Lin", "Log", "Cyan", "IR", "Turbulence"},
	10: {"Lin", "Log", "Cyan", "IR", "Turbulence"},
}

// adcBits maps a sensor package number to its ADC resolution.
var adcBits = map[int]int{
	0: 12, 1: 12, 2: 12, 3: 12, 4: 12, 5: 12,
	6: 16, 7: 16, 8: 16,
	9: 12, 10: 12,
}

// ChannelNames returns the channel names for a sensor package, in the
// order they appear in the raw ascent log.
func ChannelNames(pkg int) ([]string, error) {
	names, ok := channelNames[pkg]
	if !ok {
		return nil, fmt.Errorf("sonde: unknown sensor package %d", pkg)
	}
	return names, nil
}

// ADCBits returns the ADC bit depth for a sensor package.
func ADCBits(pkg int) (int, error) {
	bits, ok := adcBits[pkg]
	if !ok {
		return 0, fmt.Errorf("sonde: unknown sensor package %d", pkg)
	}
	return bits, nil
}

// Ascent is one radiosonde flight's full time-ordered measurement set
// from launch to burst, stored columnar: every slice has one entry per
// telemetry record, missing values as NaN. Heights are kilometres above
// ground and non-decreasing.
type Ascent struct {
	ID            string
	SensorPackage int
	LaunchTime    time.Time
	SourceFile    string

	TimeS       []float64 // seconds since launch
	HeightKM    []float64
	PressureHPa []float64
	TdryC       []float64
	TdewC       []float64
	RH          []float64 // percent, with respect to water
	RHIce       []float64 // percent, with respect to ice (below 0 degC)
	WindU       []float64 // m/s
	WindV       []float64 // m/s
	MixingRatio []float64 // g/kg

	// Channels holds the package-specific sensor channels keyed by
	// name (Lin, Log, Cyan, IR, ...), in the same units as parsed.
	Channels map[string][]float64
}

// Len returns the number of telemetry records.
func (a *Ascent) Len() int { return len(a.HeightKM) }

// Validate checks the column lengths agree and heights do not decrease.
func (a *Ascent) Validate() error {
	n := a.Len()
	if n == 0 {
		return fmt.Errorf("sonde: ascent %s has no samples", a.ID)
	}
	cols := map[string]int{
		"time":     len(a.TimeS),
		"pressure": len(a.PressureHPa),
		"tdry":     len(a.TdryC),
		"tdew":     len(a.TdewC),
		"rh":       len(a.RH),
		"u":        len(a.WindU),
		"v":        len(a.WindV),
		"mr":       len(a.MixingRatio),
	}
	for name, l := range cols {
		if l != n {
			return fmt.Errorf("sonde: ascent %s column %s has %d samples, want %d", a.ID, name, l, n)
		}
	}
	for name, ch := range a.Channels {
		if len(ch) != n {
			return fmt.Errorf("sonde: ascent %s channel %s has %d samples, want %d", a.ID, name, len(ch), n)
		}
	}
	for i := 1; i < n; i++ {
		if a.HeightKM[i] < a.HeightKM[i-1] {
			return fmt.Errorf("sonde: ascent %s height decreases at sample %d (%.3f after %.3f)",
				a.ID, i, a.HeightKM[i], a.HeightKM[i-1])
		}
	}
	return nil
}
