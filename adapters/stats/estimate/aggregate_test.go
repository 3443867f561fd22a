package estimate

import (
	"math"
	"testing"

	"gocoex/domain/core"
	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

func testBundle(t *testing.T) *dataset.ExpressionBundle {
	t.Helper()
	b, err := dataset.NewExpressionBundle(
		[]core.SpotID{"s0", "s1", "s2"},
		[]core.EntityKey{"synthase_a", "synthase_b", "hydrolase", "unrelated"},
		[][]float64{
			{2, 8, 1, 3},
			{0, 4, 0, 5},
			{0, 0, 2, 1},
		},
		[][2]float64{{0, 0}, {1, 0}, {2, 0}},
	)
	if err != nil {
		t.Fatalf("Failed to build bundle: %v", err)
	}
	return b
}

// TestAggregateEstimators tests each aggregation on known values
func TestAggregateEstimators(t *testing.T) {
	b := testBundle(t)
	genes := []core.EntityKey{"synthase_a", "synthase_b"}

	tests := []struct {
		est      Estimator
		expected []float64 // per spot over values (2,8), (0,4), (0,0)
	}{
		{EstimatorMean, []float64{5, 2, 0}},
		{EstimatorNonZeroMean, []float64{5, 4, 0}},
		{EstimatorGeometricMean, []float64{4, 0, 0}},
		{EstimatorHarmonicMean, []float64{3.2, 0, 0}},
		{EstimatorMax, []float64{8, 4, 0}},
	}

	for _, test := range tests {
		got, err := AggregateSet(b, genes, test.est)
		if err != nil {
			t.Fatalf("AggregateSet(%s) failed: %v", test.est, err)
		}
		for i, expected := range test.expected {
			if math.Abs(got[i]-expected) > 1e-12 {
				t.Errorf("%s at spot %d: expected %v, got %v", test.est, i, expected, got[i])
			}
		}
	}
}

// TestAggregateSkipsUnknownGenes tests silent intersection with the panel
func TestAggregateSkipsUnknownGenes(t *testing.T) {
	b := testBundle(t)

	got, err := AggregateSet(b, []core.EntityKey{"synthase_a", "not_measured"}, EstimatorMean)
	if err != nil {
		t.Fatalf("AggregateSet failed: %v", err)
	}
	// only synthase_a resolves: values 2, 0, 0
	want := []float64{2, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Spot %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// fully absent set aggregates to zeros
	got, err = AggregateSet(b, []core.EntityKey{"ghost1", "ghost2"}, EstimatorMax)
	if err != nil {
		t.Fatalf("AggregateSet failed: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("Spot %d: expected 0 for absent set, got %v", i, v)
		}
	}

	// empty set likewise
	got, err = AggregateSet(b, nil, EstimatorMean)
	if err != nil {
		t.Fatalf("AggregateSet failed: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("Spot %d: expected 0 for empty set, got %v", i, v)
		}
	}
}

// TestMetaboliteProductionMinusDegradation tests the clipped difference
func TestMetaboliteProductionMinusDegradation(t *testing.T) {
	b := testBundle(t)
	spec := dataset.MetaboliteSpec{
		Key:      "metab_x",
		Produced: []core.EntityKey{"synthase_a", "synthase_b"},
		Degraded: []core.EntityKey{"hydrolase"},
	}

	got, err := Metabolite(b, spec, EstimatorMean)
	if err != nil {
		t.Fatalf("Metabolite failed: %v", err)
	}
	// produced mean: 5, 2, 0; degraded mean: 1, 0, 2 -> 4, 2, clipped 0
	want := []float64{4, 2, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Spot %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// TestWithEstimatesExtendsBundle tests appending metabolite columns
func TestWithEstimatesExtendsBundle(t *testing.T) {
	b := testBundle(t)
	specs := []dataset.MetaboliteSpec{
		{Key: "metab_x", Produced: []core.EntityKey{"synthase_a", "synthase_b"}, Degraded: []core.EntityKey{"hydrolase"}},
	}

	extended, err := WithEstimates(b, specs, EstimatorMean)
	if err != nil {
		t.Fatalf("WithEstimates failed: %v", err)
	}
	if extended.EntityCount() != b.EntityCount()+1 {
		t.Fatalf("Expected %d entities, got %d", b.EntityCount()+1, extended.EntityCount())
	}

	col, ok := extended.Column("metab_x")
	if !ok {
		t.Fatal("Expected metabolite column to resolve")
	}
	want := []float64{4, 2, 0}
	for i := range want {
		if math.Abs(col[i]-want[i]) > 1e-12 {
			t.Errorf("Spot %d: expected %v, got %v", i, want[i], col[i])
		}
	}

	// original bundle untouched
	if b.EntityCount() != 4 {
		t.Error("Source bundle gained columns")
	}

	// key collision fails
	_, err = WithEstimates(b, []dataset.MetaboliteSpec{{Key: "hydrolase", Produced: []core.EntityKey{"synthase_a"}}}, EstimatorMean)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Expected validation error for key collision, got %v", err)
	}
}

// TestParseEstimator tests name resolution
func TestParseEstimator(t *testing.T) {
	if _, err := ParseEstimator(" GMEAN "); err != nil {
		t.Errorf("ParseEstimator failed on alias case: %v", err)
	}
	if _, err := ParseEstimator("median"); !apperrors.HasCode(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected configuration error for unknown estimator, got %v", err)
	}
}

// TestAggregateRejectsNegatives tests the non-negativity requirement
func TestAggregateRejectsNegatives(t *testing.T) {
	b, err := dataset.NewExpressionBundle(
		[]core.SpotID{"s0"},
		[]core.EntityKey{"g"},
		[][]float64{{-1}},
		[][2]float64{{0, 0}},
	)
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}
	if _, err := AggregateSet(b, []core.EntityKey{"g"}, EstimatorGeometricMean); err == nil {
		t.Error("Expected error for negative expression")
	}
}
