package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
)

// StoredLayer is one detected layer as persisted, tagged with the
// detector model version that produced it.
type StoredLayer struct {
	AscentID     string               `json:"ascent_id"`
	ModelVersion string               `json:"model_version"`
	LayerID      int                  `json:"layer_id"`
	LayerType    cloudlayer.LayerType `json:"layer_type"`
	BaseKM       float64              `json:"base_km"`
	TopKM        float64              `json:"top_km"`
}

// SaveLayers replaces the stored layers for one ascent and model
// version with the given set. Re-running a detector is idempotent:
// previous results under the same version are deleted first.
func (db *DB) SaveLayers(ctx context.Context, ascentID, modelVersion string, layers []cloudlayer.Layer) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM cloud_layers WHERE ascent_id = ? AND model_version = ?`,
		ascentID, modelVersion)
	if err != nil {
		return fmt.Errorf("failed to delete previous layers: %w", err)
	}
	if deleted, _ := result.RowsAffected(); deleted > 0 {
		log.Printf("replaced %d %s layers for ascent %s", deleted, modelVersion, ascentID)
	}

	for _, l := range layers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cloud_layers (ascent_id, model_version, layer_id, layer_type, base_km, top_km)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ascentID, modelVersion, l.ID, int(l.Type), l.BaseKM, l.TopKM,
		); err != nil {
			return fmt.Errorf("failed to insert layer %d: %w", l.ID, err)
		}
	}

	// A run that found nothing still counts as done, so the worker
	// will not pick the ascent up again.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO detection_runs (run_id, ascent_id, model_version, layer_count, detected_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (ascent_id, model_version)
		DO UPDATE SET run_id = excluded.run_id, layer_count = excluded.layer_count, detected_at = CURRENT_TIMESTAMP`,
		uuid.NewString(), ascentID, modelVersion, len(layers),
	); err != nil {
		return fmt.Errorf("failed to record detection run: %w", err)
	}

	return tx.Commit()
}

// LoadLayers returns the stored layers for an ascent under one model
// version, ordered by layer ID.
func (db *DB) LoadLayers(ctx context.Context, ascentID, modelVersion string) ([]StoredLayer, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ascent_id, model_version, layer_id, layer_type, base_km, top_km
		FROM cloud_layers
		WHERE ascent_id = ? AND model_version = ?
		ORDER BY layer_id`, ascentID, modelVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredLayer
	for rows.Next() {
		var l StoredLayer
		var lt int
		if err := rows.Scan(&l.AscentID, &l.ModelVersion, &l.LayerID, &lt, &l.BaseKM, &l.TopKM); err != nil {
			return nil, err
		}
		l.LayerType = cloudlayer.LayerType(lt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// AscentsPendingDetection lists ascent IDs with no recorded detection
// run under the given model version.
func (db *DB) AscentsPendingDetection(ctx context.Context, modelVersion string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.ascent_id FROM ascents a
		WHERE NOT EXISTS (
			SELECT 1 FROM detection_runs r
			WHERE r.ascent_id = a.ascent_id AND r.model_version = ?
		)
		ORDER BY a.ascent_id`, modelVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
