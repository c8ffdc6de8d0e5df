package db

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
	"github.com/epcc-data/ascent.report/internal/sonde"
)

// cloudyAscent carries a saturated band from 0.3 to 1.0 km that the
// default detector reports as a cloud layer.
func cloudyAscent(id string) *sonde.Ascent {
	heights := []float64{0.10, 0.20, 0.30, 0.50, 0.70, 1.00, 1.50, 2.00}
	rh := []float64{60, 60, 97, 98, 97, 96, 60, 60}
	n := len(heights)
	flat := func(v float64) []float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = v
		}
		return s
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i)
	}
	return &sonde.Ascent{
		ID:            id,
		SensorPackage: 5,
		LaunchTime:    time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
		TimeS:         times,
		HeightKM:      heights,
		PressureHPa:   flat(900),
		TdryC:         flat(5),
		TdewC:         flat(4),
		RH:            rh,
		RHIce:         rh,
		WindU:         flat(1),
		WindV:         flat(1),
		MixingRatio:   flat(6),
	}
}

func newTestWorker(t *testing.T, db *DB) *DetectWorker {
	t.Helper()
	det, err := cloudlayer.NewDefaultDetector()
	if err != nil {
		t.Fatalf("NewDefaultDetector: %v", err)
	}
	w := NewDetectWorker(db, det, "zhang-v1", prometheus.NewRegistry())
	w.Clock = clockwork.NewFakeClock()
	return w
}

func TestDetectWorkerRunOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, cloudyAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	w := newTestWorker(t, db)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	layers, err := db.LoadLayers(ctx, "flight-05", "zhang-v1")
	if err != nil {
		t.Fatalf("LoadLayers: %v", err)
	}
	if len(layers) != 1 {
		t.Fatalf("got %d layers, want 1: %+v", len(layers), layers)
	}
	if layers[0].LayerType != cloudlayer.Cloud {
		t.Errorf("layer type = %v, want Cloud", layers[0].LayerType)
	}
	if layers[0].BaseKM != 0.30 || layers[0].TopKM != 1.00 {
		t.Errorf("layer extent = (%v, %v), want (0.30, 1.00)", layers[0].BaseKM, layers[0].TopKM)
	}

	if got := testutil.ToFloat64(w.runsTotal); got != 1 {
		t.Errorf("runs counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(w.ascentsTotal); got != 1 {
		t.Errorf("ascents counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(w.failuresTotal); got != 0 {
		t.Errorf("failures counter = %v, want 0", got)
	}
}

func TestDetectWorkerSkipsProcessed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, cloudyAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	w := newTestWorker(t, db)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce (second): %v", err)
	}

	// Second sweep found nothing pending.
	if got := testutil.ToFloat64(w.ascentsTotal); got != 1 {
		t.Errorf("ascents counter = %v, want 1", got)
	}
}

func TestDetectWorkerTicker(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, cloudyAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	w := newTestWorker(t, db)
	fc := w.Clock.(*clockwork.FakeClock)
	w.Start()
	defer w.Stop()

	fc.BlockUntil(1) // ticker created
	fc.Advance(w.Interval)

	deadline := time.After(5 * time.Second)
	for {
		layers, err := db.LoadLayers(ctx, "flight-05", "zhang-v1")
		if err != nil {
			t.Fatalf("LoadLayers: %v", err)
		}
		if len(layers) > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("worker never processed the ascent")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
