package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyTuningConfigFallbacks(t *testing.T) {
	cfg := EmptyTuningConfig()

	p := cfg.DetectorParams()
	if p.MinBaseKM != 0.12 {
		t.Errorf("MinBaseKM = %f, want 0.12", p.MinBaseKM)
	}
	if p.MergeGapKM != 0.3 {
		t.Errorf("MergeGapKM = %f, want 0.3", p.MergeGapKM)
	}
	if p.MinThickMidKM != 0.0610 {
		t.Errorf("MinThickMidKM = %f, want 0.0610", p.MinThickMidKM)
	}

	tab := cfg.ThresholdTable()
	if len(tab.AltitudeKM) != 5 || tab.AltitudeKM[4] != 20 {
		t.Errorf("unexpected default threshold altitudes: %v", tab.AltitudeKM)
	}

	if cfg.GetModelVersion() != "zhang-v1" {
		t.Errorf("GetModelVersion() = %q, want zhang-v1", cfg.GetModelVersion())
	}
	if cfg.GetDetectInterval() != 15*time.Minute {
		t.Errorf("GetDetectInterval() = %v, want 15m", cfg.GetDetectInterval())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "merge_gap_km": 0.5,
  "low_boundary_km": 2.5,
  "model_version": "zhang-v2",
  "detect_interval": "5m"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	p := cfg.DetectorParams()
	if p.MergeGapKM != 0.5 {
		t.Errorf("MergeGapKM = %f, want 0.5", p.MergeGapKM)
	}
	if p.LowBoundaryKM != 2.5 {
		t.Errorf("LowBoundaryKM = %f, want 2.5", p.LowBoundaryKM)
	}
	// Unset fields keep their defaults
	if p.MinBaseKM != 0.12 {
		t.Errorf("MinBaseKM = %f, want default 0.12", p.MinBaseKM)
	}
	if cfg.GetModelVersion() != "zhang-v2" {
		t.Errorf("GetModelVersion() = %q, want zhang-v2", cfg.GetModelVersion())
	}
	if cfg.GetDetectInterval() != 5*time.Minute {
		t.Errorf("GetDetectInterval() = %v, want 5m", cfg.GetDetectInterval())
	}
}

func TestLoadTuningConfigThresholdOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "thresholds.json")

	testJSON := `{
  "threshold_alt_km":   [0, 10],
  "threshold_min_rh":   [90, 80],
  "threshold_max_rh":   [95, 85],
  "threshold_inter_rh": [85, 75]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	tab := cfg.ThresholdTable()
	if len(tab.AltitudeKM) != 2 || tab.MinRH[1] != 80 {
		t.Errorf("override not applied: %+v", tab)
	}
	if _, err := cfg.NewDetector(); err != nil {
		t.Errorf("NewDetector() error: %v", err)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for non-json extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadTuningConfig(filepath.Join(tmpDir, "absent.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("negative param", func(t *testing.T) {
		path := filepath.Join(tmpDir, "negative.json")
		if err := os.WriteFile(path, []byte(`{"merge_gap_km": -1}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for negative merge_gap_km")
		}
	})

	t.Run("partial threshold override", func(t *testing.T) {
		path := filepath.Join(tmpDir, "partial.json")
		if err := os.WriteFile(path, []byte(`{"threshold_alt_km": [0, 10]}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for partial threshold override")
		}
	})

	t.Run("bad interval", func(t *testing.T) {
		path := filepath.Join(tmpDir, "interval.json")
		if err := os.WriteFile(path, []byte(`{"detect_interval": "soon"}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for bad detect_interval")
		}
	})
}
