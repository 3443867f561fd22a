package testkit

import (
	"testing"

	"gocoex/domain/core"
)

func TestGenerateBundleShape(t *testing.T) {
	cfg := DefaultSpatialConfig()
	gen := NewSpatialDataGenerator(cfg)

	bundle, err := gen.GenerateBundle()
	if err != nil {
		t.Fatalf("GenerateBundle failed: %v", err)
	}

	wantSpots := cfg.GridWidth * cfg.GridHeight
	if bundle.SpotCount() != wantSpots {
		t.Errorf("expected %d spots, got %d", wantSpots, bundle.SpotCount())
	}
	if bundle.EntityCount() != len(gen.Panel()) {
		t.Errorf("expected %d entities, got %d", len(gen.Panel()), bundle.EntityCount())
	}

	// Row-major grid: second spot sits one spacing to the right
	if bundle.Coords[1][0] != cfg.Spacing || bundle.Coords[1][1] != 0 {
		t.Errorf("unexpected second coordinate %v", bundle.Coords[1])
	}
}

func TestGenerateBundleDeterministic(t *testing.T) {
	cfg := DefaultSpatialConfig()

	a, err := NewSpatialDataGenerator(cfg).GenerateBundle()
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	b, err := NewSpatialDataGenerator(cfg).GenerateBundle()
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if a.Fingerprint != b.Fingerprint {
		t.Errorf("same config should give identical bundles, fingerprints %s vs %s", a.Fingerprint, b.Fingerprint)
	}

	cfg.Seed = 43
	c, err := NewSpatialDataGenerator(cfg).GenerateBundle()
	if err != nil {
		t.Fatalf("reseeded generation failed: %v", err)
	}
	if a.Fingerprint == c.Fingerprint {
		t.Error("different seeds should change the bundle")
	}
}

func TestGenerateBundleNonNegative(t *testing.T) {
	bundle, err := NewSpatialDataGenerator(DefaultSpatialConfig()).GenerateBundle()
	if err != nil {
		t.Fatalf("GenerateBundle failed: %v", err)
	}
	for i, row := range bundle.Values {
		for j, v := range row {
			if v < 0 {
				t.Fatalf("expression must be non-negative, got %f at (%d,%d)", v, i, j)
			}
		}
	}
}

func TestPanelCoverage(t *testing.T) {
	gen := NewSpatialDataGenerator(DefaultSpatialConfig())
	bundle, err := gen.GenerateBundle()
	if err != nil {
		t.Fatalf("GenerateBundle failed: %v", err)
	}

	for _, pair := range gen.CommunicationPairs() {
		if _, ok := bundle.EntityIndex(pair.X); !ok {
			t.Errorf("pair references unknown entity %s", pair.X)
		}
		if _, ok := bundle.EntityIndex(pair.Y); !ok {
			t.Errorf("pair references unknown entity %s", pair.Y)
		}
	}
	for _, spec := range gen.MetaboliteSpecs() {
		genes := append(append([]core.EntityKey(nil), spec.Produced...), spec.Degraded...)
		for _, g := range genes {
			if _, ok := bundle.EntityIndex(g); !ok {
				t.Errorf("metabolite %s references unknown gene %s", spec.Key, g)
			}
		}
	}
}

func TestGenerateBundleRejectsBadGrid(t *testing.T) {
	cfg := DefaultSpatialConfig()
	cfg.GridWidth = 0
	if _, err := NewSpatialDataGenerator(cfg).GenerateBundle(); err == nil {
		t.Error("expected error for empty grid")
	}
}
