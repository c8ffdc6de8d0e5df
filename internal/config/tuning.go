// Package config loads detection tuning from JSON files. Every field
// is optional: the Get* accessors fall back to the published Zhang
// thresholds, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
)

// TuningConfig represents the root configuration for detection
// tuning. The same JSON shape serves startup configuration and any
// future runtime update endpoint.
type TuningConfig struct {
	// Detector params
	MinBaseKM      *float64 `json:"min_base_km,omitempty"`
	MinBaseThickKM *float64 `json:"min_base_thickness_km,omitempty"`
	FloorTopKM     *float64 `json:"floor_top_km,omitempty"`
	MergeGapKM     *float64 `json:"merge_gap_km,omitempty"`
	LowBoundaryKM  *float64 `json:"low_boundary_km,omitempty"`
	MinThickLowKM  *float64 `json:"min_thickness_low_km,omitempty"`
	MinThickMidKM  *float64 `json:"min_thickness_mid_km,omitempty"`

	// Threshold table override. All four arrays must be given
	// together or not at all.
	ThresholdAltKM   []float64 `json:"threshold_alt_km,omitempty"`
	ThresholdMinRH   []float64 `json:"threshold_min_rh,omitempty"`
	ThresholdMaxRH   []float64 `json:"threshold_max_rh,omitempty"`
	ThresholdInterRH []float64 `json:"threshold_inter_rh,omitempty"`

	// Worker params
	ModelVersion   *string `json:"model_version,omitempty"`
	DetectInterval *string `json:"detect_interval,omitempty"` // duration string like "15m"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file
// must have a .json extension and stay under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"min_base_km":           c.MinBaseKM,
		"min_base_thickness_km": c.MinBaseThickKM,
		"floor_top_km":          c.FloorTopKM,
		"merge_gap_km":          c.MergeGapKM,
		"low_boundary_km":       c.LowBoundaryKM,
		"min_thickness_low_km":  c.MinThickLowKM,
		"min_thickness_mid_km":  c.MinThickMidKM,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	given := 0
	for _, arr := range [][]float64{c.ThresholdAltKM, c.ThresholdMinRH, c.ThresholdMaxRH, c.ThresholdInterRH} {
		if len(arr) > 0 {
			given++
		}
	}
	if given != 0 && given != 4 {
		return fmt.Errorf("threshold override needs all four arrays, got %d", given)
	}
	if given == 4 {
		if err := c.ThresholdTable().Validate(); err != nil {
			return fmt.Errorf("threshold override: %w", err)
		}
	}

	if c.DetectInterval != nil && *c.DetectInterval != "" {
		if _, err := time.ParseDuration(*c.DetectInterval); err != nil {
			return fmt.Errorf("invalid detect_interval '%s': %w", *c.DetectInterval, err)
		}
	}

	return nil
}

// DetectorParams assembles the detector parameters, falling back to
// the published defaults for any unset field.
func (c *TuningConfig) DetectorParams() cloudlayer.Params {
	p := cloudlayer.DefaultParams()
	if c.MinBaseKM != nil {
		p.MinBaseKM = *c.MinBaseKM
	}
	if c.MinBaseThickKM != nil {
		p.MinBaseThickKM = *c.MinBaseThickKM
	}
	if c.FloorTopKM != nil {
		p.FloorTopKM = *c.FloorTopKM
	}
	if c.MergeGapKM != nil {
		p.MergeGapKM = *c.MergeGapKM
	}
	if c.LowBoundaryKM != nil {
		p.LowBoundaryKM = *c.LowBoundaryKM
	}
	if c.MinThickLowKM != nil {
		p.MinThickLowKM = *c.MinThickLowKM
	}
	if c.MinThickMidKM != nil {
		p.MinThickMidKM = *c.MinThickMidKM
	}
	return p
}

// ThresholdTable returns the threshold override when present, or the
// published table.
func (c *TuningConfig) ThresholdTable() cloudlayer.ThresholdTable {
	if len(c.ThresholdAltKM) == 0 {
		return cloudlayer.DefaultThresholdTable()
	}
	return cloudlayer.ThresholdTable{
		AltitudeKM: c.ThresholdAltKM,
		MinRH:      c.ThresholdMinRH,
		MaxRH:      c.ThresholdMaxRH,
		InterRH:    c.ThresholdInterRH,
	}
}

// NewDetector builds a detector from the configured thresholds and
// parameters.
func (c *TuningConfig) NewDetector() (*cloudlayer.Detector, error) {
	return cloudlayer.NewDetector(c.ThresholdTable(), c.DetectorParams())
}

// GetModelVersion returns the model_version value or the default.
func (c *TuningConfig) GetModelVersion() string {
	if c.ModelVersion == nil || *c.ModelVersion == "" {
		return "zhang-v1" // default
	}
	return *c.ModelVersion
}

// GetDetectInterval parses and returns the DetectInterval as a time.Duration.
func (c *TuningConfig) GetDetectInterval() time.Duration {
	if c.DetectInterval == nil || *c.DetectInterval == "" {
		return 15 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.DetectInterval)
	if err != nil {
		return 15 * time.Minute // default on parse error
	}
	return d
}
