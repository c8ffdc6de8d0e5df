package plotting

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
	"github.com/epcc-data/ascent.report/internal/sonde"
)

func testAscent() *sonde.Ascent {
	return &sonde.Ascent{
		ID:         "flight-05",
		LaunchTime: time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
		HeightKM:   []float64{0.1, 0.5, 1.0, 1.5, 2.0},
		RHIce:      []float64{60, 97, math.NaN(), 96, 50},
	}
}

func TestRHProfile(t *testing.T) {
	curves, err := cloudlayer.NewThresholdCurves(cloudlayer.DefaultThresholdTable())
	if err != nil {
		t.Fatalf("NewThresholdCurves: %v", err)
	}
	layers := []cloudlayer.Layer{
		{ID: 1, Type: cloudlayer.Cloud, BaseKM: 0.5, TopKM: 1.5},
	}

	p, err := RHProfile(testAscent(), layers, curves)
	if err != nil {
		t.Fatalf("RHProfile: %v", err)
	}
	if p.Title.Text == "" {
		t.Error("plot has no title")
	}
	if p.Y.Label.Text != "Height (km)" {
		t.Errorf("y label = %q", p.Y.Label.Text)
	}
}

func TestSaveRHProfile(t *testing.T) {
	curves, err := cloudlayer.NewThresholdCurves(cloudlayer.DefaultThresholdTable())
	if err != nil {
		t.Fatalf("NewThresholdCurves: %v", err)
	}

	path := filepath.Join(t.TempDir(), "profile.png")
	if err := SaveRHProfile(path, testAscent(), nil, curves); err != nil {
		t.Fatalf("SaveRHProfile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestProfileXYsDropsNaN(t *testing.T) {
	pts := profileXYs([]float64{1, math.NaN(), 3}, []float64{0.1, 0.2, 0.3})
	if len(pts) != 2 {
		t.Fatalf("got %d points, want 2", len(pts))
	}
	if pts[1].X != 3 || pts[1].Y != 0.3 {
		t.Errorf("pts[1] = %+v", pts[1])
	}
}
