package db

import (
	"context"
	"testing"

	"github.com/epcc-data/ascent.report/internal/cloudlayer"
)

func TestSaveLoadLayers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, testAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	layers := []cloudlayer.Layer{
		{ID: 1, Type: cloudlayer.Cloud, BaseKM: 0.5, TopKM: 1.2},
		{ID: 2, Type: cloudlayer.Moist, BaseKM: 3.0, TopKM: 3.4},
	}
	if err := db.SaveLayers(ctx, "flight-05", "zhang-v1", layers); err != nil {
		t.Fatalf("SaveLayers: %v", err)
	}

	got, err := db.LoadLayers(ctx, "flight-05", "zhang-v1")
	if err != nil {
		t.Fatalf("LoadLayers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d layers, want 2", len(got))
	}
	if got[0].LayerType != cloudlayer.Cloud || got[0].BaseKM != 0.5 {
		t.Errorf("layer 1 = %+v", got[0])
	}
	if got[1].LayerType != cloudlayer.Moist || got[1].TopKM != 3.4 {
		t.Errorf("layer 2 = %+v", got[1])
	}
}

func TestSaveLayersReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, testAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	old := []cloudlayer.Layer{{ID: 1, Type: cloudlayer.Cloud, BaseKM: 0.5, TopKM: 1.2}}
	if err := db.SaveLayers(ctx, "flight-05", "zhang-v1", old); err != nil {
		t.Fatalf("SaveLayers: %v", err)
	}
	if err := db.SaveLayers(ctx, "flight-05", "zhang-v1", nil); err != nil {
		t.Fatalf("SaveLayers (rerun): %v", err)
	}

	got, err := db.LoadLayers(ctx, "flight-05", "zhang-v1")
	if err != nil {
		t.Fatalf("LoadLayers: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rerun should have replaced layers, got %d", len(got))
	}
}

func TestLayersKeyedByModelVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveAscent(ctx, testAscent("flight-05")); err != nil {
		t.Fatalf("SaveAscent: %v", err)
	}

	v1 := []cloudlayer.Layer{{ID: 1, Type: cloudlayer.Cloud, BaseKM: 0.5, TopKM: 1.2}}
	v2 := []cloudlayer.Layer{{ID: 1, Type: cloudlayer.Moist, BaseKM: 0.6, TopKM: 1.1}}
	if err := db.SaveLayers(ctx, "flight-05", "zhang-v1", v1); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveLayers(ctx, "flight-05", "zhang-v2", v2); err != nil {
		t.Fatal(err)
	}

	got1, _ := db.LoadLayers(ctx, "flight-05", "zhang-v1")
	got2, _ := db.LoadLayers(ctx, "flight-05", "zhang-v2")
	if len(got1) != 1 || got1[0].LayerType != cloudlayer.Cloud {
		t.Errorf("v1 layers = %+v", got1)
	}
	if len(got2) != 1 || got2[0].LayerType != cloudlayer.Moist {
		t.Errorf("v2 layers = %+v", got2)
	}
}

func TestAscentsPendingDetection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"flight-04", "flight-05"} {
		if err := db.SaveAscent(ctx, testAscent(id)); err != nil {
			t.Fatalf("SaveAscent: %v", err)
		}
	}

	pending, err := db.AscentsPendingDetection(ctx, "zhang-v1")
	if err != nil {
		t.Fatalf("AscentsPendingDetection: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want both", pending)
	}

	// An empty result still marks the ascent processed.
	if err := db.SaveLayers(ctx, "flight-04", "zhang-v1", nil); err != nil {
		t.Fatalf("SaveLayers: %v", err)
	}
	pending, err = db.AscentsPendingDetection(ctx, "zhang-v1")
	if err != nil {
		t.Fatalf("AscentsPendingDetection: %v", err)
	}
	if len(pending) != 1 || pending[0] != "flight-05" {
		t.Errorf("pending = %v, want [flight-05]", pending)
	}

	// A different model version sees everything as pending.
	pending, err = db.AscentsPendingDetection(ctx, "zhang-v2")
	if err != nil {
		t.Fatalf("AscentsPendingDetection: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending for new version = %v, want both", pending)
	}
}
