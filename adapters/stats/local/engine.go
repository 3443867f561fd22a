package local

import (
	"context"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"gocoex/domain/dataset"
	"gocoex/internal"
	apperrors "gocoex/internal/errors"
)

const (
	// corrDenomFloor clamps correlation statistics to zero when the product
	// of the two weighted variance terms falls below it. Near-constant
	// neighbourhoods produce denominators in this range and the ratio is
	// numeric noise, not signal.
	corrDenomFloor = 1e-6

	// float32Eps pads cosine and jaccard denominators so empty
	// neighbourhoods divide to zero instead of NaN
	float32Eps = 1.1920928955078125e-07
)

// Engine computes local bivariate statistics over a proximity weighting.
// One engine is safe for concurrent use; every call allocates its own
// working state.
type Engine struct {
	workers int
	logger  *internal.Logger
}

// NewEngine builds an engine. workers bounds parallel sections; values
// below 1 fall back to GOMAXPROCS.
func NewEngine(workers int) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		workers: workers,
		logger:  internal.DefaultLogger.Named("local"),
	}
}

// vectorizedState holds the per-call inputs after validation and transform.
// Y-side moment matrices are fixed across x permutations, so they are
// computed once here.
type vectorizedState struct {
	method Method
	n, p   int

	w    *mat.Dense // dense proximity, materialized once per call
	wsum []float64  // per-spot neighbourhood weight totals

	x, y *mat.Dense // transformed inputs (ranks for spearman, binary for jaccard)

	wy  *mat.Dense // W*y        (pearson family, jaccard)
	wy2 *mat.Dense // W*(y*y)    (pearson family, cosine)
}

func (e *Engine) newState(xMat, yMat *mat.Dense, prox *dataset.Proximity, method Method) (*vectorizedState, error) {
	if _, ok := methodTable[method]; !ok {
		return nil, apperrors.Configurationf("unknown local statistic %q", string(method))
	}
	if xMat == nil || yMat == nil {
		return nil, apperrors.Validation("x and y matrices are required")
	}
	xr, xc := xMat.Dims()
	yr, yc := yMat.Dims()
	if xr != yr || xc != yc {
		return nil, apperrors.Validationf("x is %dx%d but y is %dx%d, paired matrices must share shape", xr, xc, yr, yc)
	}
	if prox == nil {
		return nil, apperrors.Validation("proximity matrix is required")
	}
	if prox.Dim() != xr {
		return nil, apperrors.Validationf("proximity is %dx%d but matrices have %d spots", prox.Dim(), prox.Dim(), xr)
	}

	st := &vectorizedState{
		method: method,
		n:      xr,
		p:      xc,
		w:      prox.Dense(),
		wsum:   prox.RowSums(),
		x:      xMat,
		y:      yMat,
	}

	switch method {
	case MethodSpearman:
		st.x = rankColumns(xMat)
		st.y = rankColumns(yMat)
	case MethodJaccard:
		st.x = binarize(xMat)
		st.y = binarize(yMat)
	}

	switch method {
	case MethodPearson, MethodSpearman:
		st.wy = matProduct(st.w, st.y)
		st.wy2 = matProduct(st.w, hadamard(st.y, st.y))
	case MethodCosine:
		st.wy2 = matProduct(st.w, hadamard(st.y, st.y))
	case MethodJaccard:
		st.wy = matProduct(st.w, st.y)
	}
	return st, nil
}

// compute scores one x-side variant against the fixed y side, writing the
// spot x pair statistic into dst. xArg must already carry the state's
// transform (ranks or binarization); permutations reorder rows only, which
// commutes with both.
func (st *vectorizedState) compute(xArg *mat.Dense, dst *mat.Dense) {
	switch st.method {
	case MethodPearson, MethodSpearman:
		wx := matProduct(st.w, xArg)
		wx2 := matProduct(st.w, hadamard(xArg, xArg))
		wxy := matProduct(st.w, hadamard(xArg, st.y))
		for i := 0; i < st.n; i++ {
			ws := st.wsum[i]
			for j := 0; j < st.p; j++ {
				sy := st.wy.At(i, j)
				sx := wx.At(i, j)
				num := ws*wxy.At(i, j) - sx*sy
				denX := ws*wx2.At(i, j) - sx*sx
				denY := ws*st.wy2.At(i, j) - sy*sy
				dst.Set(i, j, clampCorr(num, denX*denY))
			}
		}

	case MethodCosine:
		wx2 := matProduct(st.w, hadamard(xArg, xArg))
		wxy := matProduct(st.w, hadamard(xArg, st.y))
		for i := 0; i < st.n; i++ {
			for j := 0; j < st.p; j++ {
				den := math.Sqrt(wx2.At(i, j)*st.wy2.At(i, j) + float32Eps)
				dst.Set(i, j, wxy.At(i, j)/den)
			}
		}

	case MethodJaccard:
		// binary inputs: min(a,b) = a*b, max(a,b) = a + b - a*b
		wa := matProduct(st.w, xArg)
		wab := matProduct(st.w, hadamard(xArg, st.y))
		for i := 0; i < st.n; i++ {
			for j := 0; j < st.p; j++ {
				minSum := wab.At(i, j)
				maxSum := wa.At(i, j) + st.wy.At(i, j) - wab.At(i, j)
				dst.Set(i, j, minSum/(maxSum+float32Eps))
			}
		}
	}
}

// clampCorr applies the denominator floor and the [-1, 1] clamp
func clampCorr(num, den float64) float64 {
	if den < corrDenomFloor {
		return 0
	}
	r := num / math.Sqrt(den)
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}

// ComputeLocal runs the vectorized path: the four weighted moment matrices
// come from dense products against the proximity matrix and the statistic is
// assembled elementwise. Returns a spot x pair matrix.
func (e *Engine) ComputeLocal(ctx context.Context, xMat, yMat *mat.Dense, prox *dataset.Proximity, method Method) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, "local statistic cancelled")
	}
	st, err := e.newState(xMat, yMat, prox, method)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(st.n, st.p, nil)
	st.compute(st.x, out)

	e.logger.Debug("computed local %s for %d spots x %d pairs", method, st.n, st.p)
	return out, nil
}

// matProduct multiplies dense matrices into a fresh result
func matProduct(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// hadamard multiplies elementwise into a fresh result
func hadamard(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

// binarize maps strictly positive entries to 1, everything else to 0
func binarize(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) > 0 {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}

// permuteRowsInto writes src with rows reordered by perm into dst:
// row i of dst is row perm[i] of src
func permuteRowsInto(dst, src *mat.Dense, perm []int) {
	for i, s := range perm {
		dst.SetRow(i, src.RawRowView(s))
	}
}
