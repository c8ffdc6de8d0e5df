package sonde

import (
	"fmt"
	"math"
)

// ADCReferenceVolts is the full-scale reference of the telemetry ADCs.
const ADCReferenceVolts = 5.0

// CountsToVolts converts a raw ADC count to volts for the given bit
// depth. NaN propagates.
func CountsToVolts(counts float64, bits int) float64 {
	return counts / math.Pow(2, float64(bits)) * ADCReferenceVolts
}

// CountsToVoltsSeries converts a whole channel from counts to volts.
func CountsToVoltsSeries(counts []float64, bits int) []float64 {
	out := make([]float64, len(counts))
	scale := ADCReferenceVolts / math.Pow(2, float64(bits))
	for i, c := range counts {
		out[i] = c * scale
	}
	return out
}

// SaturationVapourPressureWater returns the saturation vapour pressure
// over a plane water surface in hPa (Teten's formula), for temperature
// in degrees Celsius.
func SaturationVapourPressureWater(tC float64) float64 {
	return 6.112 * math.Exp(17.67*tC/(tC+243.5))
}

// SaturationVapourPressureIce returns the saturation vapour pressure
// over a plane ice surface in hPa (Teten's formula, ice constants), for
// temperature in degrees Celsius.
func SaturationVapourPressureIce(tC float64) float64 {
	return 6.112 * math.Exp(22.46*tC/(tC+272.62))
}

// RHIce converts relative humidity measured with respect to water into
// relative humidity with respect to ice. Above freezing the two are the
// same; below freezing the ice saturation pressure is lower, so RH(ice)
// exceeds RH(water). NaN in either input propagates.
func RHIce(rhWater, tC float64) float64 {
	if math.IsNaN(rhWater) || math.IsNaN(tC) {
		return math.NaN()
	}
	if tC >= 0 {
		return rhWater
	}
	return rhWater * SaturationVapourPressureWater(tC) / SaturationVapourPressureIce(tC)
}

// DeriveRHIce fills the ascent's RHIce column from its RH and dry-bulb
// temperature columns.
func (a *Ascent) DeriveRHIce() error {
	if len(a.RH) != len(a.TdryC) {
		return fmt.Errorf("sonde: ascent %s has %d RH samples for %d temperatures",
			a.ID, len(a.RH), len(a.TdryC))
	}
	a.RHIce = make([]float64, len(a.RH))
	for i := range a.RH {
		a.RHIce[i] = RHIce(a.RH[i], a.TdryC[i])
	}
	return nil
}

// CalibrateChannels converts every bespoke sensor channel from raw
// counts to volts in place, using the package's ADC bit depth. The
// parity channel carries frame markers rather than a measurement and is
// left untouched.
func (a *Ascent) CalibrateChannels() error {
	bits, err := ADCBits(a.SensorPackage)
	if err != nil {
		return err
	}
	for name, ch := range a.Channels {
		if name == "Parity" {
			continue
		}
		a.Channels[name] = CountsToVoltsSeries(ch, bits)
	}
	return nil
}
