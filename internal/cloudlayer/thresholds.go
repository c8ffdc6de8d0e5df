// Package cloudlayer detects and classifies cloud and moist layers in a
// radiosonde ascent from its relative humidity profile (computed with
// respect to ice), following the height-resolving threshold method of
// Zhang et al. (2010), J. Geophys. Res. 115, D00K30.
//
// The detector consumes two aligned series, sample height in kilometres
// and RH(ice) in percent, and produces a per-sample segment identifier
// together with a per-sample layer classification. Downstream consumers
// (plotting, charge analysis) work from those two sequences alone.
package cloudlayer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// ThresholdTable holds altitude-indexed RH thresholds used to seed,
// classify and merge moist layers. Altitudes are kilometres and must be
// strictly increasing; threshold values are percent RH.
type ThresholdTable struct {
	AltitudeKM []float64
	MinRH      []float64
	MaxRH      []float64
	InterRH    []float64
}

// DefaultThresholdTable returns the reference thresholds from Table 1 of
// Zhang et al. (2010).
func DefaultThresholdTable() ThresholdTable {
	return ThresholdTable{
		AltitudeKM: []float64{0, 2, 6, 12, 20},
		MinRH:      []float64{92, 90, 88, 75, 75},
		MaxRH:      []float64{95, 93, 90, 80, 80},
		InterRH:    []float64{84, 82, 78, 70, 70},
	}
}

// Validate checks the table is well formed: equal column lengths, at
// least two breakpoints, strictly increasing altitudes, and
// interRH <= minRH <= maxRH at every breakpoint.
func (t ThresholdTable) Validate() error {
	n := len(t.AltitudeKM)
	if n < 2 {
		return fmt.Errorf("threshold table needs at least 2 breakpoints, got %d", n)
	}
	if len(t.MinRH) != n || len(t.MaxRH) != n || len(t.InterRH) != n {
		return fmt.Errorf("threshold table columns must all have %d entries", n)
	}
	for i := 1; i < n; i++ {
		if t.AltitudeKM[i] <= t.AltitudeKM[i-1] {
			return fmt.Errorf("threshold altitudes must be strictly increasing: %.3f after %.3f",
				t.AltitudeKM[i], t.AltitudeKM[i-1])
		}
	}
	for i := 0; i < n; i++ {
		if t.InterRH[i] > t.MinRH[i] || t.MinRH[i] > t.MaxRH[i] {
			return fmt.Errorf("threshold ordering interRH <= minRH <= maxRH violated at %.1f km",
				t.AltitudeKM[i])
		}
	}
	return nil
}

// ThresholdCurves linearly interpolates a ThresholdTable against sample
// heights. Heights outside the table's altitude span have no defined
// threshold and evaluate to NaN, which never satisfies a comparison and
// therefore never seeds or grows a layer.
type ThresholdCurves struct {
	min, max, inter interp.PiecewiseLinear
	lo, hi          float64
}

// NewThresholdCurves fits interpolators over the table.
func NewThresholdCurves(t ThresholdTable) (*ThresholdCurves, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	c := &ThresholdCurves{
		lo: t.AltitudeKM[0],
		hi: t.AltitudeKM[len(t.AltitudeKM)-1],
	}
	if err := c.min.Fit(t.AltitudeKM, t.MinRH); err != nil {
		return nil, fmt.Errorf("fit minRH curve: %w", err)
	}
	if err := c.max.Fit(t.AltitudeKM, t.MaxRH); err != nil {
		return nil, fmt.Errorf("fit maxRH curve: %w", err)
	}
	if err := c.inter.Fit(t.AltitudeKM, t.InterRH); err != nil {
		return nil, fmt.Errorf("fit interRH curve: %w", err)
	}
	return c, nil
}

// At returns the interpolated (minRH, maxRH, interRH) at the given
// height. All three are NaN outside the table's altitude span.
func (c *ThresholdCurves) At(heightKM float64) (minRH, maxRH, interRH float64) {
	if math.IsNaN(heightKM) || heightKM < c.lo || heightKM > c.hi {
		nan := math.NaN()
		return nan, nan, nan
	}
	return c.min.Predict(heightKM), c.max.Predict(heightKM), c.inter.Predict(heightKM)
}

// Profile evaluates the three curves over a whole height series.
func (c *ThresholdCurves) Profile(heightKM []float64) (minRH, maxRH, interRH []float64) {
	minRH = make([]float64, len(heightKM))
	maxRH = make([]float64, len(heightKM))
	interRH = make([]float64, len(heightKM))
	for i, h := range heightKM {
		minRH[i], maxRH[i], interRH[i] = c.At(h)
	}
	return minRH, maxRH, interRH
}
