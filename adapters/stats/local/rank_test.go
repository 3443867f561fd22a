package local

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestAverageRanksNoTies tests plain 1-based ranking
func TestAverageRanksNoTies(t *testing.T) {
	got := averageRanks([]float64{3, 1, 2})
	want := []float64{3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Rank %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// TestAverageRanksTies tests tie groups sharing their mean rank
func TestAverageRanksTies(t *testing.T) {
	tests := []struct {
		values   []float64
		expected []float64
	}{
		{[]float64{1, 2, 2, 3}, []float64{1, 2.5, 2.5, 4}},
		{[]float64{5, 5, 5}, []float64{2, 2, 2}},
		{[]float64{4, 4, 1, 1}, []float64{3.5, 3.5, 1.5, 1.5}},
		{[]float64{7}, []float64{1}},
	}

	for _, test := range tests {
		got := averageRanks(test.values)
		for i := range test.expected {
			if got[i] != test.expected[i] {
				t.Errorf("averageRanks(%v)[%d]: expected %v, got %v", test.values, i, test.expected[i], got[i])
			}
		}
	}
}

// TestAverageRanksSumInvariant tests that tie averaging preserves the rank sum
func TestAverageRanksSumInvariant(t *testing.T) {
	values := []float64{2, 2, 9, 1, 9, 9, 3}
	n := len(values)

	sum := 0.0
	for _, r := range averageRanks(values) {
		sum += r
	}
	expected := float64(n*(n+1)) / 2
	if math.Abs(sum-expected) > 1e-12 {
		t.Errorf("Expected rank sum %v, got %v", expected, sum)
	}
}

// TestRankColumnsIndependence tests that columns rank independently
func TestRankColumnsIndependence(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		10, 1,
		30, 3,
		20, 2,
	})
	got := rankColumns(m)

	want := [][]float64{{1, 1}, {3, 3}, {2, 2}}
	for i := range want {
		for j := range want[i] {
			if got.At(i, j) != want[i][j] {
				t.Errorf("Rank at (%d,%d): expected %v, got %v", i, j, want[i][j], got.At(i, j))
			}
		}
	}
}
