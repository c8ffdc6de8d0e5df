package cloudlayer

import "math"

// LayerType classifies a sample's layer membership.
type LayerType int8

const (
	ClearAir LayerType = iota
	Moist
	Cloud
)

func (t LayerType) String() string {
	switch t {
	case ClearAir:
		return "Clear Air"
	case Moist:
		return "Moist (Not Cloud)"
	case Cloud:
		return "Cloud"
	default:
		return "Unknown"
	}
}

// run is a maximal contiguous span of samples sharing one identifier.
type run struct {
	id          int
	first, last int // inclusive sample indices
}

// Contiguous assigns run identifiers over vals. Entries that are NaN or
// equal to the invalid sentinel receive identifier 0; each maximal run
// of the remaining entries receives the next identifier, starting at 1,
// in order of appearance. Pass NaN as the sentinel to mask on NaN alone.
func Contiguous(vals []float64, invalid float64) []int {
	ids := make([]int, len(vals))
	next := 1
	inRun := false
	for i, v := range vals {
		if math.IsNaN(v) || v == invalid {
			inRun = false
			continue
		}
		if !inRun {
			inRun = true
			ids[i] = next
			next++
		} else {
			ids[i] = next - 1
		}
	}
	return ids
}

// Renumber compresses nonzero identifiers to a gapless 1..M range in
// order of first appearance. Consecutive nonzero entries belong to the
// same run even when their incoming identifiers differ, so spans joined
// by a merge collapse to a single segment. Renumbering an already
// renumbered sequence is a no-op.
func Renumber(ids []int) []int {
	out := make([]int, len(ids))
	next := 1
	inRun := false
	for i, id := range ids {
		if id == 0 {
			inRun = false
			continue
		}
		if !inRun {
			inRun = true
			out[i] = next
			next++
		} else {
			out[i] = next - 1
		}
	}
	return out
}

// GroupEqual assigns run identifiers to maximal runs of samples whose
// classification equals accept; all other samples receive 0. Used to
// extract clear-air spans from a classification sequence.
func GroupEqual(types []LayerType, accept LayerType) []int {
	ids := make([]int, len(types))
	next := 1
	inRun := false
	for i, t := range types {
		if t != accept {
			inRun = false
			continue
		}
		if !inRun {
			inRun = true
			ids[i] = next
			next++
		} else {
			ids[i] = next - 1
		}
	}
	return ids
}

// runsOf lists the maximal runs of equal nonzero identifier, in order of
// appearance. By the segmenter's construction each identifier occupies
// exactly one run.
func runsOf(ids []int) []run {
	var rs []run
	for i := 0; i < len(ids); {
		if ids[i] == 0 {
			i++
			continue
		}
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[i] {
			j++
		}
		rs = append(rs, run{id: ids[i], first: i, last: j})
		i = j + 1
	}
	return rs
}
