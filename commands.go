package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/epcc-data/ascent.report/internal/api"
	"github.com/epcc-data/ascent.report/internal/charge"
	"github.com/epcc-data/ascent.report/internal/cloudlayer"
	"github.com/epcc-data/ascent.report/internal/config"
	"github.com/epcc-data/ascent.report/internal/db"
	"github.com/epcc-data/ascent.report/internal/ingest"
	"github.com/epcc-data/ascent.report/internal/plotting"
	"github.com/epcc-data/ascent.report/internal/security"
	"github.com/epcc-data/ascent.report/internal/thermo"
	"github.com/epcc-data/ascent.report/internal/units"
)

func loadTuning(path string) *config.TuningConfig {
	if path == "" {
		return config.EmptyTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	return cfg
}

func openDB(path string) *db.DB {
	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", path, err)
	}
	return database
}

// handleIngest reads one flight's raw log (and GPS track when present)
// from disk and stores the ascent.
func handleIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dataDir := fs.String("data", ".", "Directory holding the raw flight logs")
	flight := fs.Int("flight", 0, "Flight number to ingest (required)")
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	fs.Parse(args)

	if *flight <= 0 {
		log.Fatal("ingest: --flight is required")
	}

	fd, err := ingest.LoadFlight(*dataDir, *flight)
	if err != nil {
		log.Fatalf("failed to load flight %d: %v", *flight, err)
	}

	database := openDB(*dbPath)
	defer database.Close()

	if err := database.SaveAscent(context.Background(), fd.Ascent); err != nil {
		log.Fatalf("failed to store ascent: %v", err)
	}

	launch := "unknown"
	if !fd.Ascent.LaunchTime.IsZero() {
		launch = fd.Ascent.LaunchTime.UTC().Format(time.RFC3339)
	}
	log.Printf("stored ascent %s: %d samples, launch %s, source %s",
		fd.Ascent.ID, fd.Ascent.Len(), launch, fd.Ascent.SourceFile)
}

// handleDetect runs one detection pass over every ascent missing
// layers for the configured model version.
func handleDetect(args []string) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	tuningPath := fs.String("config", "", "Optional tuning config JSON file")
	ascentID := fs.String("ascent", "", "Detect a single ascent instead of all pending")
	fs.Parse(args)

	cfg := loadTuning(*tuningPath)
	det, err := cfg.NewDetector()
	if err != nil {
		log.Fatalf("failed to build detector: %v", err)
	}

	database := openDB(*dbPath)
	defer database.Close()

	worker := db.NewDetectWorker(database, det, cfg.GetModelVersion(), nil)
	ctx := context.Background()

	if *ascentID != "" {
		if err := worker.DetectOne(ctx, *ascentID); err != nil {
			log.Fatalf("detection failed for %s: %v", *ascentID, err)
		}
		log.Printf("detected layers for ascent %s", *ascentID)
		return
	}

	if err := worker.RunOnce(ctx); err != nil {
		log.Fatalf("detection pass failed: %v", err)
	}
	log.Print("detection pass complete")
}

// handlePlot renders the RH(ice) profile with detected layers to a PNG.
func handlePlot(args []string) {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	tuningPath := fs.String("config", "", "Optional tuning config JSON file")
	ascentID := fs.String("ascent", "", "Ascent identifier to plot (required)")
	outPath := fs.String("out", "", "Output PNG path (default <ascent>.png)")
	fs.Parse(args)

	if *ascentID == "" {
		log.Fatal("plot: --ascent is required")
	}
	if *outPath == "" {
		*outPath = security.SanitizeFilename(*ascentID) + ".png"
	}
	if err := security.ValidateExportPath(*outPath); err != nil {
		log.Fatalf("plot: unsafe output path: %v", err)
	}

	cfg := loadTuning(*tuningPath)
	curves, err := cloudlayer.NewThresholdCurves(cfg.ThresholdTable())
	if err != nil {
		log.Fatalf("failed to build threshold curves: %v", err)
	}

	database := openDB(*dbPath)
	defer database.Close()

	ctx := context.Background()
	ascent, err := database.LoadAscent(ctx, *ascentID)
	if err != nil {
		log.Fatalf("failed to load ascent %s: %v", *ascentID, err)
	}

	stored, err := database.LoadLayers(ctx, *ascentID, cfg.GetModelVersion())
	if err != nil {
		log.Fatalf("failed to load layers for %s: %v", *ascentID, err)
	}
	layers := make([]cloudlayer.Layer, len(stored))
	for i, l := range stored {
		layers[i] = cloudlayer.Layer{
			ID:     l.LayerID,
			Type:   l.LayerType,
			BaseKM: l.BaseKM,
			TopKM:  l.TopKM,
		}
	}

	if err := plotting.SaveRHProfile(*outPath, ascent, layers, curves); err != nil {
		log.Fatalf("failed to render plot: %v", err)
	}
	log.Printf("wrote %s (%d layers)", *outPath, len(layers))
}

// handleIndices prints stability indices and parcel ascent parameters
// for one stored ascent.
func handleIndices(args []string) {
	fs := flag.NewFlagSet("indices", flag.ExitOnError)
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	ascentID := fs.String("ascent", "", "Ascent identifier (required)")
	fs.Parse(args)

	if *ascentID == "" {
		log.Fatal("indices: --ascent is required")
	}

	database := openDB(*dbPath)
	defer database.Close()

	ascent, err := database.LoadAscent(context.Background(), *ascentID)
	if err != nil {
		log.Fatalf("failed to load ascent %s: %v", *ascentID, err)
	}

	idx, err := thermo.StabilityIndices(ascent.PressureHPa, ascent.TdryC, ascent.TdewC, ascent.WindU, ascent.WindV)
	if err != nil {
		log.Fatalf("failed to compute stability indices: %v", err)
	}
	fmt.Printf("K-Index:         %7.1f\n", idx.K)
	fmt.Printf("Cross Totals:    %7.1f\n", idx.CrossTotals)
	fmt.Printf("Vertical Totals: %7.1f\n", idx.VerticalTotals)
	fmt.Printf("Total Totals:    %7.1f\n", idx.TotalTotals)
	fmt.Printf("SWEAT:           %7.1f\n", idx.SWEAT)

	heightM := make([]float64, ascent.Len())
	for i, h := range ascent.HeightKM {
		heightM[i] = h * 1000
	}
	parcel, err := thermo.LiftParcel(ascent.PressureHPa, ascent.TdryC, ascent.TdewC, heightM)
	if err != nil {
		log.Printf("parcel ascent unavailable: %v", err)
		return
	}
	fmt.Printf("LCL:             %7.0f m\n", parcel.LCL)
	if !math.IsNaN(parcel.LFC) {
		fmt.Printf("LFC:             %7.0f m\n", parcel.LFC)
		fmt.Printf("EL:              %7.0f m\n", parcel.EL)
	}
	fmt.Printf("CAPE:            %7.1f J/kg\n", parcel.CAPE)
	fmt.Printf("CIN:             %7.1f J/kg\n", parcel.CIN)
}

// handleCharge calibrates the charge sensors from the raw flight log
// and prints the fits and the modelled peak ground field.
func handleCharge(args []string) {
	fs := flag.NewFlagSet("charge", flag.ExitOnError)
	dataDir := fs.String("data", ".", "Directory holding the raw flight logs")
	flight := fs.Int("flight", 0, "Flight number to analyse (required)")
	areaM2 := fs.Float64("area", charge.DefaultCollectionAreaM2, "Charge sensor collection area in m2")
	fs.Parse(args)

	if *flight <= 0 {
		log.Fatal("charge: --flight is required")
	}

	fd, err := ingest.LoadFlight(*dataDir, *flight)
	if err != nil {
		log.Fatalf("failed to load flight %d: %v", *flight, err)
	}
	ascent := fd.Ascent

	logCh, ok := ascent.Channels["Log"]
	if !ok {
		logCh = ascent.Channels["Log/Turbulence"]
	}
	linCh := ascent.Channels["Lin"]
	if logCh == nil || linCh == nil {
		log.Fatalf("flight %d carries no charge sensor channels", *flight)
	}

	cal, err := charge.Calibrate(logCh, linCh)
	if err != nil {
		log.Fatalf("charge calibration failed: %v", err)
	}
	fmt.Printf("all:      slope %.4g  intercept %.4g  R2 %.3f  n %d\n",
		cal.All.Slope, cal.All.Intercept, cal.All.R2, cal.All.N)
	if cal.Positive.N > 0 {
		fmt.Printf("positive: slope %.4g  intercept %.4g  R2 %.3f  n %d\n",
			cal.Positive.Slope, cal.Positive.Intercept, cal.Positive.R2, cal.Positive.N)
	}
	if cal.Negative.N > 0 {
		fmt.Printf("negative: slope %.4g  intercept %.4g  R2 %.3f  n %d\n",
			cal.Negative.Slope, cal.Negative.Intercept, cal.Negative.R2, cal.Negative.N)
	}

	density, err := charge.SpaceChargeDensity(linCh, ascent.TimeS, ascent.HeightKM, *areaM2)
	if err != nil {
		log.Fatalf("space charge density failed: %v", err)
	}

	// Horizontal drift is not ingested, so the track is treated as
	// directly above the field mill.
	ranges := make([]float64, ascent.Len())
	wind := make([]float64, ascent.Len())
	for i := range wind {
		wind[i] = math.Hypot(ascent.WindU[i], ascent.WindV[i])
	}
	pcs, err := charge.PointCharges(ascent.TimeS, ascent.HeightKM, ranges, wind, density)
	if err != nil {
		log.Printf("point charge estimation unavailable: %v", err)
		return
	}
	field := charge.GroundField(pcs, ascent.TimeS)
	peak := 0.0
	for _, f := range field {
		if math.Abs(f) > math.Abs(peak) {
			peak = f
		}
	}
	fmt.Printf("point charges: %d, peak ground field %.4g V/m\n", len(pcs), peak)
}

// handleServe runs the HTTP API plus the background detection worker
// until interrupted.
func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "HTTP listen address")
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	tuningPath := fs.String("config", "", "Optional tuning config JSON file")
	heightUnits := fs.String("units", units.KM, "Height units for API output ("+units.GetValidUnitsString()+")")
	fs.Parse(args)

	if !units.IsValid(*heightUnits) {
		log.Fatalf("invalid units %q, valid: %s", *heightUnits, units.GetValidUnitsString())
	}

	cfg := loadTuning(*tuningPath)
	det, err := cfg.NewDetector()
	if err != nil {
		log.Fatalf("failed to build detector: %v", err)
	}

	database := openDB(*dbPath)
	defer database.Close()

	registry := prometheus.NewRegistry()
	worker := db.NewDetectWorker(database, det, cfg.GetModelVersion(), registry)
	worker.Interval = cfg.GetDetectInterval()
	worker.Start()
	defer worker.Stop()

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.NewServer(database, *heightUnits, cfg.GetModelVersion(), registry).ServeMux()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Print("graceful shutdown complete")
}

// handleList prints the stored ascents.
func handleList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	fs.Parse(args)

	database := openDB(*dbPath)
	defer database.Close()

	summaries, err := database.ListAscents(context.Background())
	if err != nil {
		log.Fatalf("failed to list ascents: %v", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no ascents stored")
		return
	}
	for _, s := range summaries {
		launch := "unknown launch"
		if !s.LaunchTime.IsZero() {
			launch = s.LaunchTime.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-12s pkg %2d  %6d samples  %s\n", s.ID, s.SensorPackage, s.SampleCount, launch)
	}
}

// handleMigrate dispatches to the migration CLI.
func handleMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "ascent_data.db", "Path to the SQLite database file")
	migrationsDir := fs.String("migrations", "internal/db/migrations", "Path to the migrations directory")
	fs.Parse(args)

	db.RunMigrateCommand(fs.Args(), *dbPath, *migrationsDir)
}
