package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
	"github.com/epcc-data/ascent.report/internal/monitoring"
)

// DetectWorker periodically scans for ascents with no detection run
// under its model version and stores the layers it finds. Designed to
// run alongside ingestion so freshly stored flights get processed
// without an explicit detect invocation.
type DetectWorker struct {
	DB           *DB
	Detector     *cloudlayer.Detector
	ModelVersion string
	Interval     time.Duration
	Clock        clockwork.Clock
	StopChan     chan struct{}

	runsTotal     prometheus.Counter
	failuresTotal prometheus.Counter
	ascentsTotal  prometheus.Counter
	runSeconds    prometheus.Histogram
}

// NewDetectWorker builds a worker with the given detector and
// registers its metrics. A nil registerer skips registration, which
// keeps tests independent of the global registry.
func NewDetectWorker(db *DB, det *cloudlayer.Detector, modelVersion string, reg prometheus.Registerer) *DetectWorker {
	w := &DetectWorker{
		DB:           db,
		Detector:     det,
		ModelVersion: modelVersion,
		Interval:     15 * time.Minute,
		Clock:        clockwork.NewRealClock(),
		StopChan:     make(chan struct{}),

		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_worker_runs_total",
			Help: "Completed detection sweeps.",
		}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_worker_failures_total",
			Help: "Detection sweeps that returned an error.",
		}),
		ascentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detect_worker_ascents_total",
			Help: "Ascents processed across all sweeps.",
		}),
		runSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detect_worker_run_seconds",
			Help:    "Wall time of one detection sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(w.runsTotal, w.failuresTotal, w.ascentsTotal, w.runSeconds)
	}
	return w
}

// Start runs the periodic worker loop in a goroutine.
func (w *DetectWorker) Start() {
	go func() {
		ticker := w.Clock.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if err := w.RunOnce(context.Background()); err != nil {
					monitoring.Logf("detect worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *DetectWorker) Stop() {
	close(w.StopChan)
}

// RunOnce detects layers for every ascent still pending under the
// worker's model version.
func (w *DetectWorker) RunOnce(ctx context.Context) error {
	start := w.Clock.Now()
	err := w.runOnce(ctx)
	w.runSeconds.Observe(w.Clock.Since(start).Seconds())
	if err != nil {
		w.failuresTotal.Inc()
		return err
	}
	w.runsTotal.Inc()
	return nil
}

func (w *DetectWorker) runOnce(ctx context.Context) error {
	pending, err := w.DB.AscentsPendingDetection(ctx, w.ModelVersion)
	if err != nil {
		return err
	}
	for _, id := range pending {
		if err := w.DetectOne(ctx, id); err != nil {
			return fmt.Errorf("ascent %s: %w", id, err)
		}
		w.ascentsTotal.Inc()
	}
	if len(pending) > 0 {
		monitoring.Logf("detect worker: processed %d ascents under %s", len(pending), w.ModelVersion)
	}
	return nil
}

// DetectOne loads an ascent, runs the detector over it and stores the
// resulting layers.
func (w *DetectWorker) DetectOne(ctx context.Context, ascentID string) error {
	a, err := w.DB.LoadAscent(ctx, ascentID)
	if err != nil {
		return err
	}
	res, err := w.Detector.Detect(a.HeightKM, a.RHIce)
	if err != nil {
		return err
	}
	layers, err := cloudlayer.Layers(a.HeightKM, res)
	if err != nil {
		return err
	}
	return w.DB.SaveLayers(ctx, ascentID, w.ModelVersion, layers)
}
