package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/epcc-data/ascent.report/internal/sonde"
)

// AscentSummary is the per-flight row shown in listings.
type AscentSummary struct {
	ID            string    `json:"id"`
	SensorPackage int       `json:"sensor_package"`
	LaunchTime    time.Time `json:"launch_time"`
	SourceFile    string    `json:"source_file"`
	SampleCount   int       `json:"sample_count"`
}

// SaveAscent stores an ascent and its full sample set, replacing any
// previous copy with the same ID.
func (db *DB) SaveAscent(ctx context.Context, a *sonde.Ascent) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ascent_samples WHERE ascent_id = ?`, a.ID); err != nil {
		return fmt.Errorf("failed to delete previous samples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ascents WHERE ascent_id = ?`, a.ID); err != nil {
		return fmt.Errorf("failed to delete previous ascent: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ascents (ascent_id, sensor_package, launch_time, source_file, sample_count)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.SensorPackage, a.LaunchTime.UTC(), a.SourceFile, a.Len(),
	); err != nil {
		return fmt.Errorf("failed to insert ascent: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ascent_samples
			(ascent_id, idx, time_s, height_km, pressure_hpa, tdry_c, tdew_c,
			 rh, rh_ice, wind_u, wind_v, mixing_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < a.Len(); i++ {
		var rhIce sql.NullFloat64
		if len(a.RHIce) == a.Len() {
			rhIce = nullIfNaN(a.RHIce[i])
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, i,
			nullIfNaN(a.TimeS[i]), nullIfNaN(a.HeightKM[i]), nullIfNaN(a.PressureHPa[i]),
			nullIfNaN(a.TdryC[i]), nullIfNaN(a.TdewC[i]),
			nullIfNaN(a.RH[i]), rhIce,
			nullIfNaN(a.WindU[i]), nullIfNaN(a.WindV[i]), nullIfNaN(a.MixingRatio[i]),
		); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadAscent reads a stored ascent back out, samples included. Sensor
// channels are not persisted; the returned ascent has none.
func (db *DB) LoadAscent(ctx context.Context, id string) (*sonde.Ascent, error) {
	a := &sonde.Ascent{ID: id}
	err := db.QueryRowContext(ctx, `
		SELECT sensor_package, launch_time, source_file
		FROM ascents WHERE ascent_id = ?`, id,
	).Scan(&a.SensorPackage, &a.LaunchTime, &a.SourceFile)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("db: no ascent %q", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT time_s, height_km, pressure_hpa, tdry_c, tdew_c,
		       rh, rh_ice, wind_u, wind_v, mixing_ratio
		FROM ascent_samples WHERE ascent_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t, h, p, tdry, tdew, rh, rhIce, u, v, mr sql.NullFloat64
		if err := rows.Scan(&t, &h, &p, &tdry, &tdew, &rh, &rhIce, &u, &v, &mr); err != nil {
			return nil, err
		}
		a.TimeS = append(a.TimeS, nanIfNull(t))
		a.HeightKM = append(a.HeightKM, nanIfNull(h))
		a.PressureHPa = append(a.PressureHPa, nanIfNull(p))
		a.TdryC = append(a.TdryC, nanIfNull(tdry))
		a.TdewC = append(a.TdewC, nanIfNull(tdew))
		a.RH = append(a.RH, nanIfNull(rh))
		a.RHIce = append(a.RHIce, nanIfNull(rhIce))
		a.WindU = append(a.WindU, nanIfNull(u))
		a.WindV = append(a.WindV, nanIfNull(v))
		a.MixingRatio = append(a.MixingRatio, nanIfNull(mr))
	}
	return a, rows.Err()
}

// ListAscents returns summaries of every stored ascent, newest launch
// first.
func (db *DB) ListAscents(ctx context.Context) ([]AscentSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ascent_id, sensor_package, launch_time, source_file, sample_count
		FROM ascents ORDER BY launch_time DESC, ascent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AscentSummary
	for rows.Next() {
		var s AscentSummary
		if err := rows.Scan(&s.ID, &s.SensorPackage, &s.LaunchTime, &s.SourceFile, &s.SampleCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
