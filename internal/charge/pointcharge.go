package charge

import (
	"errors"
	"fmt"
	"math"
)

// epsilon0 is the vacuum permittivity in F/m.
const epsilon0 = 8.8541878128e-12

// ErrNoPolarityChange reports a profile whose space charge never
// reverses sign, leaving nothing to model as point charges.
var ErrNoPolarityChange = errors.New("charge: space charge never changes sign")

// PointCharge is one charge centre inferred from a run of
// single-polarity space charge during the ascent.
type PointCharge struct {
	SlantM      float64 // m, slant distance from the ground site
	Charge      float64 // C, signed
	VelocityMS  float64 // m/s, mean wind carrying the charge centre
	TimeOffsetS float64 // s, relative to the first charge centre
}

// PointCharges condenses a space charge profile into one point charge
// per polarity run. Heights and slant ranges are km, space charge
// densities pC/m3, winds m/s; all slices must be equal length and free
// of NaN.
func PointCharges(timeS, heightKM, rangeKM, windMS, spaceChargePC []float64) ([]PointCharge, error) {
	n := len(timeS)
	for name, l := range map[string]int{
		"height": len(heightKM), "range": len(rangeKM),
		"wind": len(windMS), "spacecharge": len(spaceChargePC),
	} {
		if l != n {
			return nil, fmt.Errorf("charge: column %s has %d samples, want %d", name, l, n)
		}
	}

	runs := polarityRuns(spaceChargePC)
	if len(runs) < 2 {
		return nil, ErrNoPolarityChange
	}

	pcs := make([]PointCharge, 0, len(runs))
	for _, r := range runs {
		// The charge centre sits at the densest sample of the run.
		peak := r.first
		for j := r.first; j <= r.last; j++ {
			if math.Abs(spaceChargePC[j]) > math.Abs(spaceChargePC[peak]) {
				peak = j
			}
		}

		slantKM := math.Hypot(rangeKM[peak], heightKM[peak])

		// The run's vertical extent stands in for the charged
		// region's radius.
		radiusM := (heightKM[r.last] - heightKM[r.first]) * 1000
		densityC := spaceChargePC[peak] / 1e12
		q := densityC * (4.0 / 3.0) * math.Pi * math.Pow(radiusM, 3)

		var wind float64
		for j := r.first; j <= r.last; j++ {
			wind += windMS[j]
		}
		wind /= float64(r.last - r.first + 1)

		pcs = append(pcs, PointCharge{
			SlantM:      slantKM * 1000,
			Charge:      q,
			VelocityMS:  wind,
			TimeOffsetS: timeS[peak],
		})
	}
	for i := len(pcs) - 1; i >= 0; i-- {
		pcs[i].TimeOffsetS -= pcs[0].TimeOffsetS
	}
	return pcs, nil
}

// GroundField evaluates the vertical electric field at the ground site
// for each instant in times, summing the image-charge field of every
// point charge as the wind advects it overhead:
//
//	E = 2 q h / (4 pi e0 (h^2 + d^2)^(3/2))
//
// with d the horizontal offset (t - t0) * v.
func GroundField(pcs []PointCharge, times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		var e float64
		for _, pc := range pcs {
			d := (t - pc.TimeOffsetS) * pc.VelocityMS
			r2 := pc.SlantM*pc.SlantM + d*d
			e += 2 * pc.Charge * pc.SlantM / (4 * math.Pi * epsilon0 * math.Pow(r2, 1.5))
		}
		out[i] = e
	}
	return out
}

type polarityRun struct{ first, last int }

// polarityRuns splits the profile into maximal runs of constant sign.
// Zeros extend the current run.
func polarityRuns(vals []float64) []polarityRun {
	var runs []polarityRun
	sign := 0.0
	for i, v := range vals {
		s := math.Copysign(1, v)
		if v == 0 {
			s = sign
		}
		if len(runs) == 0 || (sign != 0 && s != sign) {
			runs = append(runs, polarityRun{first: i, last: i})
		} else {
			runs[len(runs)-1].last = i
		}
		sign = s
	}
	return runs
}
