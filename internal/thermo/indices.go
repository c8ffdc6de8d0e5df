// Package thermo derives thermodynamic stability indices and parcel
// properties from an ascent's pressure, temperature and wind columns.
package thermo

import (
	"errors"
	"fmt"
	"math"
)

// ErrShortProfile reports a profile without enough samples to bracket
// the standard pressure levels.
var ErrShortProfile = errors.New("thermo: profile too short")

const msToKnots = 1.94384

// Indices holds the classic severe-weather stability indices, all
// computed from the samples nearest the 850, 700 and 500 hPa levels.
type Indices struct {
	K              float64
	CrossTotals    float64
	VerticalTotals float64
	TotalTotals    float64
	SWEAT          float64
}

// StabilityIndices computes the K, Cross/Vertical/Total Totals and
// SWEAT indices. Pressures are hPa, temperatures degrees Celsius and
// winds m/s. All slices must have the same length.
func StabilityIndices(pressureHPa, tdryC, tdewC, windU, windV []float64) (Indices, error) {
	n := len(pressureHPa)
	if n < 2 {
		return Indices{}, ErrShortProfile
	}
	for name, l := range map[string]int{
		"tdry": len(tdryC), "tdew": len(tdewC), "u": len(windU), "v": len(windV),
	} {
		if l != n {
			return Indices{}, fmt.Errorf("thermo: column %s has %d samples, want %d", name, l, n)
		}
	}

	i850 := argNear(pressureHPa, 850)
	i700 := argNear(pressureHPa, 700)
	i500 := argNear(pressureHPa, 500)

	var ix Indices
	ix.K = (tdryC[i850] - tdryC[i500]) + tdewC[i850] - (tdryC[i700] - tdewC[i700])
	ix.CrossTotals = tdewC[i850] - tdryC[i500]
	ix.VerticalTotals = tdryC[i850] - tdryC[i500]
	ix.TotalTotals = ix.VerticalTotals + ix.CrossTotals
	ix.SWEAT = sweat(ix.TotalTotals,
		tdewC[i850],
		windSpeed(windU[i850], windV[i850]), windDir(windU[i850], windV[i850]),
		windSpeed(windU[i500], windV[i500]), windDir(windU[i500], windV[i500]))
	return ix, nil
}

// sweat evaluates the SWEAT index from its five terms. The totals term
// drops out below 49 and the directional shear term only contributes
// when both levels carry the synoptic pattern the index was designed
// for: southerly low-level flow veering to south-westerly aloft, with
// at least 15 kn at each level.
func sweat(totalTotals, tdew850 float64, spd850, dir850, spd500, dir500 float64) float64 {
	kn850 := spd850 * msToKnots
	kn500 := spd500 * msToKnots

	term1 := 20 * (totalTotals - 49)
	if term1 < 0 {
		term1 = 0
	}
	term2 := 12 * tdew850
	if term2 < 0 {
		term2 = 0
	}
	term3 := 2 * kn850
	term4 := kn500

	term5 := 125 * (math.Sin((dir500-dir850)*math.Pi/180) + 0.2)
	shearValid := dir850 > 130 && dir850 < 250 &&
		dir500 > 210 && dir500 < 310 &&
		dir500-dir850 > 0 &&
		kn850 > 15 && kn500 > 15
	if !shearValid {
		term5 = 0
	}
	return term1 + term2 + term3 + term4 + term5
}

// windSpeed returns the wind magnitude in m/s.
func windSpeed(u, v float64) float64 {
	return math.Hypot(u, v)
}

// windDir returns the meteorological wind direction in degrees: the
// bearing the wind blows from, clockwise from north.
func windDir(u, v float64) float64 {
	deg := math.Atan2(u, v)*180/math.Pi + 180
	return math.Mod(deg+360, 360)
}

// argNear returns the index of the sample closest to target, ignoring
// NaNs.
func argNear(vals []float64, target float64) int {
	best, bestDiff := 0, math.Inf(1)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if d := math.Abs(v - target); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}
