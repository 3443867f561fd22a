package local

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

// spots are scored in blocks of this size per goroutine
const maskedBlockSize = 128

// ComputeLocalMasked runs the per-spot variant of the correlation statistics:
// each spot restricts to neighbours whose weight exceeds weightThr and
// recomputes the weighted moments on that subset. Output rows are disjoint
// so spots parallelize freely. With weightThr 0 the result matches
// ComputeLocal to well beyond five decimals, since zero-weight spots
// contribute nothing to any moment sum.
//
// Spearman ranks whole columns before masking, the same transform the
// vectorized path applies, so the two paths stay comparable.
func (e *Engine) ComputeLocalMasked(ctx context.Context, xMat, yMat *mat.Dense, prox *dataset.Proximity, method Method, weightThr float64) (*mat.Dense, error) {
	if !method.SupportsMasked() {
		return nil, apperrors.Configurationf("masked variant does not carry %q, use pearson or spearman", string(method))
	}
	st, err := e.newState(xMat, yMat, prox, method)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(st.n, st.p, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for start := 0; start < st.n; start += maskedBlockSize {
		start := start
		end := start + maskedBlockSize
		if end > st.n {
			end = st.n
		}
		g.Go(func() error {
			return maskedBlock(gctx, st, prox, weightThr, start, end, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, "masked local statistic aborted")
	}

	e.logger.Debug("computed masked local %s for %d spots x %d pairs (thr %v)", method, st.n, st.p, weightThr)
	return out, nil
}

// maskedBlock scores spots [start, end). Moment sums accumulate per pair
// across the spot's masked neighbourhood, then the same floor and clamp as
// the vectorized path apply.
func maskedBlock(ctx context.Context, st *vectorizedState, prox *dataset.Proximity, weightThr float64, start, end int, out *mat.Dense) error {
	p := st.p
	sw := 0.0
	swx := make([]float64, p)
	swy := make([]float64, p)
	swxy := make([]float64, p)
	swx2 := make([]float64, p)
	swy2 := make([]float64, p)

	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sw = 0
		for j := 0; j < p; j++ {
			swx[j], swy[j], swxy[j], swx2[j], swy2[j] = 0, 0, 0, 0, 0
		}

		prox.Row(i, func(s int, w float64) {
			if w <= weightThr {
				return
			}
			sw += w
			xRow := st.x.RawRowView(s)
			yRow := st.y.RawRowView(s)
			for j := 0; j < p; j++ {
				xv, yv := xRow[j], yRow[j]
				swx[j] += w * xv
				swy[j] += w * yv
				swxy[j] += w * xv * yv
				swx2[j] += w * xv * xv
				swy2[j] += w * yv * yv
			}
		})

		row := out.RawRowView(i)
		for j := 0; j < p; j++ {
			num := sw*swxy[j] - swx[j]*swy[j]
			denX := sw*swx2[j] - swx[j]*swx[j]
			denY := sw*swy2[j] - swy[j]*swy[j]
			row[j] = clampCorr(num, denX*denY)
		}
	}
	return nil
}
