package db

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/epcc-data/ascent.report/internal/sonde"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testAscent(id string) *sonde.Ascent {
	return &sonde.Ascent{
		ID:            id,
		SensorPackage: 5,
		LaunchTime:    time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
		SourceFile:    "Radiosonde_Ascent_No.05.txt",
		TimeS:         []float64{0, 1, 2},
		HeightKM:      []float64{0.01, 0.02, 0.03},
		PressureHPa:   []float64{1000, 999, 998},
		TdryC:         []float64{15, math.NaN(), 14.8},
		TdewC:         []float64{10, 10, 10},
		RH:            []float64{70, 71, 72},
		RHIce:         []float64{70, 71, 72},
		WindU:         []float64{1, 1, 1},
		WindV:         []float64{2, 2, 2},
		MixingRatio:   []float64{8, 8, 8},
	}
}

func TestSaveLoadAscent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := testAscent("flight-05")
	if err := db.SaveAscent(ctx, a); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	got, err := db.LoadAscent(ctx, "flight-05")
	if err != nil {
		t.Fatalf("LoadAscent: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("got %d samples, want 3", got.Len())
	}
	if got.SensorPackage != 5 {
		t.Errorf("sensor package = %d", got.SensorPackage)
	}
	if !got.LaunchTime.Equal(a.LaunchTime) {
		t.Errorf("launch = %v, want %v", got.LaunchTime, a.LaunchTime)
	}
	if got.HeightKM[2] != 0.03 {
		t.Errorf("height[2] = %v", got.HeightKM[2])
	}
	// NaN survives the round trip as NULL.
	if !math.IsNaN(got.TdryC[1]) {
		t.Errorf("tdry[1] = %v, want NaN", got.TdryC[1])
	}
}

func TestSaveAscentReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := testAscent("flight-05")
	if err := db.SaveAscent(ctx, a); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}
	a.RH = []float64{80, 81, 82}
	a.RHIce = []float64{80, 81, 82}
	if err := db.SaveAscent(ctx, a); err != nil {
		t.Fatalf("SaveAscent (second): %v", err)
	}

	got, err := db.LoadAscent(ctx, "flight-05")
	if err != nil {
		t.Fatalf("LoadAscent: %v", err)
	}
	if got.Len() != 3 || got.RH[0] != 80 {
		t.Errorf("replacement did not take: len=%d rh=%v", got.Len(), got.RH)
	}
}

func TestLoadAscentMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.LoadAscent(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown ascent")
	}
}

func TestListAscents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testAscent("flight-04")
	first.LaunchTime = time.Date(2019, 6, 1, 9, 0, 0, 0, time.UTC)
	second := testAscent("flight-05")
	for _, a := range []*sonde.Ascent{first, second} {
		if err := db.SaveAscent(ctx, a); err != nil {
			t.Fatalf("SaveAscent: %v", err)
		}
	}

	list, err := db.ListAscents(ctx)
	if err != nil {
		t.Fatalf("ListAscents: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d ascents, want 2", len(list))
	}
	// Newest launch first.
	if list[0].ID != "flight-05" || list[1].ID != "flight-04" {
		t.Errorf("order = %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].SampleCount != 3 {
		t.Errorf("sample count = %d", list[0].SampleCount)
	}
}

func TestMigrations(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateUp("migrations"); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	version, dirty, err := db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("migration state dirty")
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	if err := db.MigrateDown("migrations"); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	version, _, err = db.MigrateVersion("migrations")
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}
}
