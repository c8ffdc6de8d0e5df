package cloudlayer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyProfile is returned when the ascent has no samples.
	ErrEmptyProfile = errors.New("cloudlayer: empty ascent profile")
	// ErrLengthMismatch is returned when the height and humidity series
	// disagree in length.
	ErrLengthMismatch = errors.New("cloudlayer: height and humidity length mismatch")
)

// Params holds the tunable constants of the detection rule cascade.
// All distances are kilometres.
type Params struct {
	// MinBaseKM and MinBaseThickKM reject thin surface-hugging moist
	// layers: a layer is folded back into clear air when its base is
	// below MinBaseKM and its thickness is below MinBaseThickKM.
	MinBaseKM      float64
	MinBaseThickKM float64

	// FloorTopKM rejects layers whose top is below the physical cloud
	// base floor.
	FloorTopKM float64

	// MergeGapKM merges adjacent layers separated by less than this
	// vertical distance.
	MergeGapKM float64

	// LowBoundaryKM separates low from middle/high layers for the final
	// minimum-thickness rule: layers based below the boundary must be at
	// least MinThickLowKM thick, others at least MinThickMidKM.
	LowBoundaryKM float64
	MinThickLowKM float64
	MinThickMidKM float64
}

// DefaultParams returns the thresholds from Zhang et al. (2010) with the
// WMO low/middle cloud boundary.
func DefaultParams() Params {
	return Params{
		MinBaseKM:      0.12,
		MinBaseThickKM: 0.4,
		FloorTopKM:     0.280,
		MergeGapKM:     0.3,
		LowBoundaryKM:  2.0,
		MinThickLowKM:  0.0305,
		MinThickMidKM:  0.0610,
	}
}

// Result is one ascent's segmentation. Both sequences align with the
// input samples: SegmentID holds 0 for clear air and a gapless 1..M
// identifier per detected layer in order of first appearance, and
// LayerType holds the classification of each sample's segment. A Result
// is never mutated after Detect returns.
type Result struct {
	SegmentID []int
	LayerType []LayerType
}

// Detector runs the Zhang et al. (2010) rule cascade over ascent
// profiles. A Detector is immutable and safe for reuse across ascents.
type Detector struct {
	curves *ThresholdCurves
	params Params
}

// NewDetector builds a detector over the given threshold table and
// cascade parameters.
func NewDetector(table ThresholdTable, params Params) (*Detector, error) {
	curves, err := NewThresholdCurves(table)
	if err != nil {
		return nil, err
	}
	return &Detector{curves: curves, params: params}, nil
}

// NewDefaultDetector builds a detector with the published reference
// thresholds and parameters.
func NewDefaultDetector() (*Detector, error) {
	return NewDetector(DefaultThresholdTable(), DefaultParams())
}

// Detect segments one ascent's aligned height (km) and RH(ice) (%)
// series into clear-air, moist and cloud layers.
//
// Validation happens up front: empty or mismatched inputs are rejected
// and nothing else can fail. Missing humidity values (NaN) and heights
// outside the threshold table's span never satisfy a threshold, so a
// profile that is entirely dry, missing or out of range yields an
// all-clear-air result with zero segments rather than an error.
//
// The cascade executes as a single deterministic forward pass over
// working copies of the identifier and classification sequences; the
// input slices are never modified.
func (d *Detector) Detect(heightKM, rhIce []float64) (*Result, error) {
	if len(heightKM) == 0 {
		return nil, ErrEmptyProfile
	}
	if len(heightKM) != len(rhIce) {
		return nil, fmt.Errorf("%w: %d heights, %d humidity samples",
			ErrLengthMismatch, len(heightKM), len(rhIce))
	}

	n := len(heightKM)
	p := d.params
	minRH, maxRH, interRH := d.curves.Profile(heightKM)

	// Step 1: base detection. A sample is a candidate where RH exceeds
	// the height-resolved minimum; NaN on either side fails the test.
	masked := make([]float64, n)
	for i := range masked {
		if rhIce[i] > minRH[i] {
			masked[i] = heightKM[i]
		} else {
			masked[i] = math.NaN()
		}
	}

	// Step 2: contiguous candidate samples group into moist layers.
	ids := Contiguous(masked, math.NaN())
	segs := runsOf(ids)

	// Step 3: thin surface layers fold back into clear air.
	for _, s := range segs {
		base, top := heightKM[s.first], heightKM[s.last]
		if base < p.MinBaseKM && top-base < p.MinBaseThickKM {
			clearRun(ids, nil, s)
		}
	}
	segs = runsOf(ids)

	// Step 4: a layer is cloud when any sample's RH exceeds the maxRH
	// threshold at the layer's base, otherwise it stays moist.
	types := make([]LayerType, n)
	for _, s := range segs {
		t := Moist
		for i := s.first; i <= s.last; i++ {
			if rhIce[i] > maxRH[s.first] {
				t = Cloud
				break
			}
		}
		for i := s.first; i <= s.last; i++ {
			types[i] = t
		}
	}

	// Step 5: layers topping out below the floor cannot be cloud bases.
	for _, s := range segs {
		if heightKM[s.last] < p.FloorTopKM {
			clearRun(ids, types, s)
		}
	}
	segs = runsOf(ids)

	// Step 6: adjacent-layer merge, one left-to-right sweep over the
	// pairs that survived the discards. Two layers join when the gap is
	// narrow or the gap stays more humid than the inter-layer threshold
	// allows. The sweep is not iterated to a fixpoint; the relabelled
	// spans coalesce during the final renumbering.
	for i := 0; i+1 < len(segs); i++ {
		lower, upper := segs[i], segs[i+1]

		merged := heightKM[upper.first]-heightKM[lower.last] < p.MergeGapKM
		if !merged {
			gapMinRH := nanMin(rhIce[lower.last:upper.first])
			gapMaxInter := nanMax(interRH[lower.last:upper.first])
			merged = gapMinRH > gapMaxInter
		}
		if !merged {
			continue
		}

		t := Moist
		if hasType(types, lower, Cloud) || hasType(types, upper, Cloud) {
			t = Cloud
		}
		for j := lower.first; j <= upper.last; j++ {
			ids[j] = lower.id
			types[j] = t
		}
	}

	// Step 7: minimum thickness, with a lower bar below the low/middle
	// boundary.
	for _, s := range runsOf(ids) {
		base, top := heightKM[s.first], heightKM[s.last]
		thick := top - base
		if base < p.LowBoundaryKM {
			if thick < p.MinThickLowKM {
				clearRun(ids, types, s)
			}
		} else if thick < p.MinThickMidKM {
			clearRun(ids, types, s)
		}
	}

	// Step 8: compress identifiers to 1..M and settle each surviving
	// segment on a single classification (cloud dominates when a merge
	// chain joined mixed layers).
	ids = Renumber(ids)
	for _, s := range runsOf(ids) {
		t := Moist
		for i := s.first; i <= s.last; i++ {
			if types[i] == Cloud {
				t = Cloud
				break
			}
		}
		for i := s.first; i <= s.last; i++ {
			types[i] = t
		}
	}
	for i := range ids {
		if ids[i] == 0 {
			types[i] = ClearAir
		}
	}

	return &Result{SegmentID: ids, LayerType: types}, nil
}

// clearRun folds one run back into clear air. types may be nil before
// classification has happened.
func clearRun(ids []int, types []LayerType, s run) {
	for i := s.first; i <= s.last; i++ {
		ids[i] = 0
		if types != nil {
			types[i] = ClearAir
		}
	}
}

// hasType reports whether any sample of the run carries the given
// classification.
func hasType(types []LayerType, s run, t LayerType) bool {
	for i := s.first; i <= s.last; i++ {
		if types[i] == t {
			return true
		}
	}
	return false
}

// nanMin returns the smallest non-NaN value, or NaN when there is none.
func nanMin(vals []float64) float64 {
	min := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
	}
	return min
}

// nanMax returns the largest non-NaN value, or NaN when there is none.
func nanMax(vals []float64) float64 {
	max := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}
