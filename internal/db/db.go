// Package db stores parsed ascents and their detected cloud layers in
// SQLite.
package db

import (
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the SQLite database at path and
// ensures the base schema exists.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ascents (
			ascent_id         TEXT PRIMARY KEY,
			sensor_package    BIGINT,
			launch_time       TIMESTAMP,
			source_file       TEXT,
			sample_count      BIGINT,
			ingested_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS ascent_samples (
			ascent_id         TEXT NOT NULL,
			idx               BIGINT NOT NULL,
			time_s            DOUBLE,
			height_km         DOUBLE,
			pressure_hpa      DOUBLE,
			tdry_c            DOUBLE,
			tdew_c            DOUBLE,
			rh                DOUBLE,
			rh_ice            DOUBLE,
			wind_u            DOUBLE,
			wind_v            DOUBLE,
			mixing_ratio      DOUBLE,
			PRIMARY KEY (ascent_id, idx),
			FOREIGN KEY (ascent_id) REFERENCES ascents(ascent_id)
		);
		CREATE TABLE IF NOT EXISTS cloud_layers (
			ascent_id         TEXT NOT NULL,
			model_version     TEXT NOT NULL,
			layer_id          BIGINT NOT NULL,
			layer_type        BIGINT NOT NULL,
			base_km           DOUBLE,
			top_km            DOUBLE,
			detected_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (ascent_id, model_version, layer_id),
			FOREIGN KEY (ascent_id) REFERENCES ascents(ascent_id)
		);
		CREATE TABLE IF NOT EXISTS detection_runs (
			run_id            TEXT NOT NULL,
			ascent_id         TEXT NOT NULL,
			model_version     TEXT NOT NULL,
			layer_count       BIGINT NOT NULL,
			detected_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (ascent_id, model_version),
			FOREIGN KEY (ascent_id) REFERENCES ascents(ascent_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// nullIfNaN maps NaN onto SQL NULL so missing samples round-trip.
func nullIfNaN(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
