package local

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

// PermutationConfig drives empirical significance testing
type PermutationConfig struct {
	// NPerm is the permutation count; must be positive
	NPerm int
	// Seed fixes the permutation stream. Equal seeds give bit-identical
	// p-values regardless of worker count.
	Seed int64
	// PositiveOnly switches to a one-sided test (permuted >= truth instead
	// of comparing magnitudes) and forces p to 1 at spots where neither
	// entity shows positive signal
	PositiveOnly bool
}

// PermutationPvalues estimates per-cell empirical p-values for a local truth
// matrix. Each permutation reorders the rows of the x side only, breaking
// the spatial pairing while keeping both value distributions and the
// proximity structure intact, then rescoring through the same engine path
// that produced the truth.
//
// All permutations are drawn up front from one seeded source; workers only
// score them, so parallel scheduling cannot perturb the result. p-values are
// count/NPerm with a meets-or-exceeds comparison: a permutation tying the
// truth counts against it.
func (e *Engine) PermutationPvalues(ctx context.Context, xMat, yMat *mat.Dense, prox *dataset.Proximity, truth *mat.Dense, method Method, cfg PermutationConfig) (*mat.Dense, error) {
	if cfg.NPerm <= 0 {
		return nil, apperrors.Configurationf("permutation count must be positive, got %d", cfg.NPerm)
	}
	st, err := e.newState(xMat, yMat, prox, method)
	if err != nil {
		return nil, err
	}
	if truth == nil {
		return nil, apperrors.Validation("local truth matrix is required")
	}
	tr, tc := truth.Dims()
	if tr != st.n || tc != st.p {
		return nil, apperrors.Validationf("truth is %dx%d, expected %dx%d", tr, tc, st.n, st.p)
	}

	// Draw the whole permutation stream sequentially before any scoring
	rng := rand.New(rand.NewSource(cfg.Seed))
	perms := make([][]int, cfg.NPerm)
	for k := range perms {
		perms[k] = rng.Perm(st.n)
	}

	cells := st.n * st.p
	truthRef := make([]float64, cells)
	copy(truthRef, truth.RawMatrix().Data)
	if !cfg.PositiveOnly {
		for c, v := range truthRef {
			truthRef[c] = math.Abs(v)
		}
	}

	counts := make([]int64, cells)
	var mu sync.Mutex
	var wg sync.WaitGroup

	jobs := make(chan []int)
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			xBuf := mat.NewDense(st.n, st.p, nil)
			score := mat.NewDense(st.n, st.p, nil)
			local := make([]int64, cells)

			for perm := range jobs {
				permuteRowsInto(xBuf, st.x, perm)
				st.compute(xBuf, score)

				raw := score.RawMatrix().Data
				if cfg.PositiveOnly {
					for c, v := range raw {
						if v >= truthRef[c] {
							local[c]++
						}
					}
				} else {
					for c, v := range raw {
						if math.Abs(v) >= truthRef[c] {
							local[c]++
						}
					}
				}
			}

			mu.Lock()
			for c, v := range local {
				counts[c] += v
			}
			mu.Unlock()
		}()
	}

feed:
	for _, perm := range perms {
		select {
		case jobs <- perm:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, "permutation testing cancelled")
	}

	pvals := mat.NewDense(st.n, st.p, nil)
	data := pvals.RawMatrix().Data
	for c, v := range counts {
		data[c] = float64(v) / float64(cfg.NPerm)
	}

	if cfg.PositiveOnly {
		maskNonPositive(xMat, yMat, pvals)
	}

	e.logger.Debug("permutation test: %d perms of %s over %d spots x %d pairs (seed %d)", cfg.NPerm, method, st.n, st.p, cfg.Seed)
	return pvals, nil
}

// maskNonPositive forces p to 1 wherever neither side of the pair shows
// positive signal at the spot. Positive follows the sign-categorization
// convention: above the entity's own mean for non-negative columns, above
// zero otherwise.
func maskNonPositive(xMat, yMat, pvals *mat.Dense) {
	sx := EncodeSigns(xMat)
	sy := EncodeSigns(yMat)
	r, c := pvals.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if sx[i][j] != SignPositive && sy[i][j] != SignPositive {
				pvals.Set(i, j, 1)
			}
		}
	}
}
