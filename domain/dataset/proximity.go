package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gocoex/domain/core"
)

// Proximity is a spot x spot matrix of non-negative spatial weights in
// compressed sparse row form. Kernel cutoffs and neighbour masks zero most
// entries, so the compressed form is what runs keep around; the dense form
// is materialized on demand for the vectorized engine.
//
// Values are stored single-precision when the builder downcasts large
// matrices, double-precision otherwise. Exactly one of vals/vals32 is set.
type Proximity struct {
	n      int
	rowPtr []int
	colIdx []int32
	vals   []float64
	vals32 []float32
}

// CompressProximity converts a dense weight matrix to sparse form. Negative
// or non-finite weights fail the call. With downcast set, values are kept
// single-precision to bound memory on large spot counts.
func CompressProximity(dense *mat.Dense, downcast bool) (*Proximity, error) {
	r, c := dense.Dims()
	if r != c {
		return nil, core.NewShapeMismatchError("proximity", r, c, r, r)
	}

	nnz := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := dense.At(i, j)
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: proximity weight at (%d, %d)", core.ErrNonFiniteValue, i, j)
			}
			if w < 0 {
				return nil, core.NewValidationError("proximity", fmt.Sprintf("negative weight at (%d, %d)", i, j))
			}
			if w != 0 {
				nnz++
			}
		}
	}

	p := &Proximity{
		n:      r,
		rowPtr: make([]int, r+1),
		colIdx: make([]int32, 0, nnz),
	}
	if downcast {
		p.vals32 = make([]float32, 0, nnz)
	} else {
		p.vals = make([]float64, 0, nnz)
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w := dense.At(i, j)
			if w == 0 {
				continue
			}
			p.colIdx = append(p.colIdx, int32(j))
			if downcast {
				p.vals32 = append(p.vals32, float32(w))
			} else {
				p.vals = append(p.vals, w)
			}
		}
		p.rowPtr[i+1] = len(p.colIdx)
	}
	return p, nil
}

// Dim returns the spot count (the matrix is square)
func (p *Proximity) Dim() int { return p.n }

// NNZ returns the stored non-zero count
func (p *Proximity) NNZ() int { return len(p.colIdx) }

// Downcast reports whether weights are stored single-precision
func (p *Proximity) Downcast() bool { return p.vals32 != nil }

func (p *Proximity) value(k int) float64 {
	if p.vals32 != nil {
		return float64(p.vals32[k])
	}
	return p.vals[k]
}

// At returns the weight between spots i and j
func (p *Proximity) At(i, j int) float64 {
	for k := p.rowPtr[i]; k < p.rowPtr[i+1]; k++ {
		if int(p.colIdx[k]) == j {
			return p.value(k)
		}
	}
	return 0
}

// Row iterates the stored neighbours of spot i in column order
func (p *Proximity) Row(i int, fn func(j int, w float64)) {
	for k := p.rowPtr[i]; k < p.rowPtr[i+1]; k++ {
		fn(int(p.colIdx[k]), p.value(k))
	}
}

// RowSum returns the total weight of spot i's neighbourhood
func (p *Proximity) RowSum(i int) float64 {
	sum := 0.0
	for k := p.rowPtr[i]; k < p.rowPtr[i+1]; k++ {
		sum += p.value(k)
	}
	return sum
}

// RowSums returns all neighbourhood weight totals
func (p *Proximity) RowSums() []float64 {
	sums := make([]float64, p.n)
	for i := 0; i < p.n; i++ {
		sums[i] = p.RowSum(i)
	}
	return sums
}

// Dense materializes the full weight matrix
func (p *Proximity) Dense() *mat.Dense {
	out := mat.NewDense(p.n, p.n, nil)
	for i := 0; i < p.n; i++ {
		for k := p.rowPtr[i]; k < p.rowPtr[i+1]; k++ {
			out.Set(i, int(p.colIdx[k]), p.value(k))
		}
	}
	return out
}
