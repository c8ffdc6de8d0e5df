// Package plotting renders ascent profiles and detection results to
// image files.
package plotting

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
	"github.com/epcc-data/ascent.report/internal/sonde"
)

var (
	cloudFill = color.RGBA{R: 120, G: 120, B: 120, A: 90}
	moistFill = color.RGBA{R: 120, G: 160, B: 220, A: 60}

	rhColour    = color.RGBA{B: 200, A: 255}
	minColour   = color.RGBA{R: 200, A: 255}
	maxColour   = color.RGBA{R: 200, G: 120, A: 255}
	interColour = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// RHProfile builds the humidity-versus-height plot for one ascent:
// the ice-referenced RH trace, the three detection threshold curves
// and a shaded band for every detected layer.
func RHProfile(a *sonde.Ascent, layers []cloudlayer.Layer, curves *cloudlayer.ThresholdCurves) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Radiosonde Flight %s", a.ID)
	if !a.LaunchTime.IsZero() {
		p.Title.Text = fmt.Sprintf("Radiosonde Flight %s (%s)", a.ID, a.LaunchTime.Format("02/01/2006 1504UTC"))
	}
	p.X.Label.Text = "Relative Humidity wrt Ice (%)"
	p.Y.Label.Text = "Height (km)"
	p.X.Min, p.X.Max = 0, 100

	for _, l := range layers {
		fill := moistFill
		if l.Type == cloudlayer.Cloud {
			fill = cloudFill
		}
		band, err := layerBand(l, 0, 100)
		if err != nil {
			return nil, err
		}
		band.Color = fill
		band.LineStyle.Width = 0
		p.Add(band)
	}

	rhLine, err := plotter.NewLine(profileXYs(a.RHIce, a.HeightKM))
	if err != nil {
		return nil, fmt.Errorf("plotting: RH trace: %w", err)
	}
	rhLine.Color = rhColour
	rhLine.Width = vg.Points(1)
	p.Add(rhLine)
	p.Legend.Add("RH (ice)", rhLine)

	minRH, maxRH, interRH := curves.Profile(a.HeightKM)
	for _, c := range []struct {
		name   string
		vals   []float64
		colour color.Color
	}{
		{"min RH", minRH, minColour},
		{"max RH", maxRH, maxColour},
		{"inter RH", interRH, interColour},
	} {
		line, err := plotter.NewLine(profileXYs(c.vals, a.HeightKM))
		if err != nil {
			return nil, fmt.Errorf("plotting: %s curve: %w", c.name, err)
		}
		line.Color = c.colour
		line.Width = vg.Points(0.5)
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(c.name, line)
	}

	p.Legend.Top = false
	return p, nil
}

// SaveRHProfile renders the profile plot to a PNG on disk.
func SaveRHProfile(path string, a *sonde.Ascent, layers []cloudlayer.Layer, curves *cloudlayer.ThresholdCurves) error {
	p, err := RHProfile(a, layers, curves)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 11*vg.Inch, path); err != nil {
		return fmt.Errorf("plotting: save %s: %w", path, err)
	}
	return nil
}

// layerBand is the shaded horizontal band spanning a layer's vertical
// extent.
func layerBand(l cloudlayer.Layer, xMin, xMax float64) (*plotter.Polygon, error) {
	pts := plotter.XYs{
		{X: xMin, Y: l.BaseKM},
		{X: xMax, Y: l.BaseKM},
		{X: xMax, Y: l.TopKM},
		{X: xMin, Y: l.TopKM},
	}
	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return nil, fmt.Errorf("plotting: layer %d band: %w", l.ID, err)
	}
	return poly, nil
}

// profileXYs pairs a column against height, dropping NaN samples so
// line plots stay connected.
func profileXYs(xs, heights []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if i >= len(heights) || math.IsNaN(xs[i]) || math.IsNaN(heights[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: heights[i]})
	}
	return pts
}
