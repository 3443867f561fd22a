package local

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	apperrors "gocoex/internal/errors"
)

// TestEncodeSignsCentersNonNegative tests mean-centering of raw expression
// columns before sign assignment
func TestEncodeSignsCentersNonNegative(t *testing.T) {
	// column mean is 2, so values land below/at/above it
	m := mat.NewDense(3, 1, []float64{1, 2, 3})
	signs := EncodeSigns(m)

	want := []byte{SignNegative, SignZero, SignPositive}
	for i, expected := range want {
		if signs[i][0] != expected {
			t.Errorf("Row %d: expected %c, got %c", i, expected, signs[i][0])
		}
	}
}

// TestEncodeSignsKeepsCenteredColumns tests that columns already carrying
// negatives keep their raw signs
func TestEncodeSignsKeepsCenteredColumns(t *testing.T) {
	m := mat.NewDense(4, 1, []float64{-1.5, 0, 2, -0.1})
	signs := EncodeSigns(m)

	want := []byte{SignNegative, SignZero, SignPositive, SignNegative}
	for i, expected := range want {
		if signs[i][0] != expected {
			t.Errorf("Row %d: expected %c, got %c", i, expected, signs[i][0])
		}
	}
}

// TestEncodeSignsConstantColumns tests degenerate columns
func TestEncodeSignsConstantColumns(t *testing.T) {
	// all-zero and constant-positive columns both collapse to Z after centering
	m := mat.NewDense(3, 2, []float64{
		0, 5,
		0, 5,
		0, 5,
	})
	signs := EncodeSigns(m)
	for i := range signs {
		for j := range signs[i] {
			if signs[i][j] != SignZero {
				t.Errorf("Expected Z at (%d,%d), got %c", i, j, signs[i][j])
			}
		}
	}
}

// TestEncodeSignsNonNegativeYieldsNegative tests that any non-constant
// non-negative column produces at least one N after centering
func TestEncodeSignsNonNegativeYieldsNegative(t *testing.T) {
	m := mat.NewDense(4, 1, []float64{0, 0, 1, 7})
	signs := EncodeSigns(m)

	foundN := false
	for i := range signs {
		if signs[i][0] == SignNegative {
			foundN = true
		}
	}
	if !foundN {
		t.Error("Expected a below-mean cell to encode as N")
	}
}

// TestCombineAndSimplify tests the full category mapping table
func TestCombineAndSimplify(t *testing.T) {
	cx := [][]byte{{'P', 'P', 'P', 'N', 'N', 'N', 'Z', 'Z', 'Z'}}
	cy := [][]byte{{'P', 'N', 'Z', 'P', 'N', 'Z', 'P', 'N', 'Z'}}

	combined, err := CombineCategories(cx, cy)
	if err != nil {
		t.Fatalf("CombineCategories failed: %v", err)
	}
	wantCats := []string{"PP", "PN", "PZ", "NP", "NN", "NZ", "ZP", "ZN", "ZZ"}
	for j, expected := range wantCats {
		if combined[0][j] != expected {
			t.Errorf("Category %d: expected %s, got %s", j, expected, combined[0][j])
		}
	}

	simplified := SimplifyCategories(combined)
	wantSimple := []int8{1, -1, 0, -1, 0, 0, 0, 0, 0}
	for j, expected := range wantSimple {
		if simplified[0][j] != expected {
			t.Errorf("Simplified %d (%s): expected %d, got %d", j, wantCats[j], expected, simplified[0][j])
		}
	}
}

// TestCombineShapeMismatch tests the validation path
func TestCombineShapeMismatch(t *testing.T) {
	_, err := CombineCategories([][]byte{{'P'}}, [][]byte{{'P'}, {'N'}})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Expected validation error for row mismatch, got %v", err)
	}

	_, err = CombineCategories([][]byte{{'P', 'N'}}, [][]byte{{'P'}})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Expected validation error for width mismatch, got %v", err)
	}
}

// TestCategorize tests the composed chain on pair-aligned matrices
func TestCategorize(t *testing.T) {
	// pair column: x above mean at spots 2,3; y above mean at spots 0,3
	x := mat.NewDense(4, 1, []float64{0, 1, 5, 6})
	y := mat.NewDense(4, 1, []float64{8, 0, 1, 7})

	cats, err := Categorize(x, y)
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}

	// x mean 3: signs N N P P; y mean 4: signs P N N P
	wantCombined := []string{"NP", "NN", "PN", "PP"}
	wantSimple := []int8{-1, 0, -1, 1}
	for i := range wantCombined {
		if cats.Combined[i][0] != wantCombined[i] {
			t.Errorf("Spot %d: expected %s, got %s", i, wantCombined[i], cats.Combined[i][0])
		}
		if cats.Simplified[i][0] != wantSimple[i] {
			t.Errorf("Spot %d: expected %d, got %d", i, wantSimple[i], cats.Simplified[i][0])
		}
	}

	if _, err := Categorize(x, mat.NewDense(3, 1, nil)); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Expected validation error for shape mismatch, got %v", err)
	}
}
