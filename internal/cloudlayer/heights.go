package cloudlayer

import "fmt"

// HeightRange is one layer's base and top heights in kilometres: the
// heights of its first and last samples.
type HeightRange struct {
	BaseKM float64
	TopKM  float64
}

// Layer describes one finalized segment for downstream consumers.
type Layer struct {
	ID     int
	Type   LayerType
	BaseKM float64
	TopKM  float64
}

// Layers projects a detection result onto per-segment records in
// ascending order of appearance.
func Layers(heightKM []float64, res *Result) ([]Layer, error) {
	if len(heightKM) != len(res.SegmentID) {
		return nil, fmt.Errorf("cloudlayer: %d heights for %d segment samples",
			len(heightKM), len(res.SegmentID))
	}
	var layers []Layer
	for _, s := range runsOf(res.SegmentID) {
		layers = append(layers, Layer{
			ID:     s.id,
			Type:   res.LayerType[s.first],
			BaseKM: heightKM[s.first],
			TopKM:  heightKM[s.last],
		})
	}
	return layers, nil
}

// CloudHeights returns (base, top) height pairs for every
// Cloud-classified segment, in ascending height order.
func CloudHeights(heightKM []float64, res *Result) ([]HeightRange, error) {
	layers, err := Layers(heightKM, res)
	if err != nil {
		return nil, err
	}
	var out []HeightRange
	for _, l := range layers {
		if l.Type == Cloud {
			out = append(out, HeightRange{BaseKM: l.BaseKM, TopKM: l.TopKM})
		}
	}
	return out, nil
}

// ClearAirHeights returns (base, top) height pairs for clear-air runs,
// found by re-segmenting the classification sequence at ClearAir.
func ClearAirHeights(heightKM []float64, res *Result) ([]HeightRange, error) {
	if len(heightKM) != len(res.LayerType) {
		return nil, fmt.Errorf("cloudlayer: %d heights for %d classified samples",
			len(heightKM), len(res.LayerType))
	}
	clearIDs := GroupEqual(res.LayerType, ClearAir)
	var out []HeightRange
	for _, s := range runsOf(clearIDs) {
		out = append(out, HeightRange{BaseKM: heightKM[s.first], TopKM: heightKM[s.last]})
	}
	return out, nil
}
