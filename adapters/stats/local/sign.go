package local

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "gocoex/internal/errors"
)

// Sign characters for per-cell expression state
const (
	SignPositive = 'P'
	SignNegative = 'N'
	SignZero     = 'Z'
)

// EncodeSigns classifies every cell of a spot x entity matrix as P, N or Z.
// Columns that never go negative (raw expression does not) are mean-centered
// first, so P means above the entity's own mean. Columns already carrying
// negatives (pre-scaled input) keep their signs as-is.
func EncodeSigns(m *mat.Dense) [][]byte {
	r, c := m.Dims()
	out := make([][]byte, r)
	for i := range out {
		out[i] = make([]byte, c)
	}

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)

		nonNegative := true
		for _, v := range col {
			if v < 0 {
				nonNegative = false
				break
			}
		}
		shift := 0.0
		if nonNegative {
			shift = stat.Mean(col, nil)
		}

		for i, v := range col {
			switch {
			case v-shift > 0:
				out[i][j] = SignPositive
			case v-shift < 0:
				out[i][j] = SignNegative
			default:
				out[i][j] = SignZero
			}
		}
	}
	return out
}

// CombineCategories concatenates the x and y sign of each cell into a
// two-character interaction category: PP, PN, NP, NN, or any combination
// with Z.
func CombineCategories(cx, cy [][]byte) ([][]string, error) {
	if len(cx) != len(cy) {
		return nil, apperrors.Validationf("sign matrices have %d and %d rows, must match", len(cx), len(cy))
	}
	out := make([][]string, len(cx))
	for i := range cx {
		if len(cx[i]) != len(cy[i]) {
			return nil, apperrors.Validationf("sign matrices disagree on row %d width", i)
		}
		out[i] = make([]string, len(cx[i]))
		for j := range cx[i] {
			out[i][j] = string([]byte{cx[i][j], cy[i][j]})
		}
	}
	return out, nil
}

// SimplifyCategories folds interaction categories to a signed indicator:
// PP is 1, PN and NP are -1, everything else is 0. NN maps to zero because
// joint absence only says both entities sit below their means, which is not
// evidence of opposition.
func SimplifyCategories(cats [][]string) [][]int8 {
	out := make([][]int8, len(cats))
	for i, row := range cats {
		out[i] = make([]int8, len(row))
		for j, cat := range row {
			switch cat {
			case "PP":
				out[i][j] = 1
			case "PN", "NP":
				out[i][j] = -1
			default:
				out[i][j] = 0
			}
		}
	}
	return out
}

// Categories bundles the combined and simplified views of one pair set
type Categories struct {
	Combined   [][]string
	Simplified [][]int8
}

// Categorize runs the full encode, combine, simplify chain on pair-aligned
// x and y matrices
func Categorize(xMat, yMat *mat.Dense) (*Categories, error) {
	xr, xc := xMat.Dims()
	yr, yc := yMat.Dims()
	if xr != yr || xc != yc {
		return nil, apperrors.Validationf("x is %dx%d but y is %dx%d, paired matrices must share shape", xr, xc, yr, yc)
	}
	combined, err := CombineCategories(EncodeSigns(xMat), EncodeSigns(yMat))
	if err != nil {
		return nil, err
	}
	return &Categories{
		Combined:   combined,
		Simplified: SimplifyCategories(combined),
	}, nil
}
