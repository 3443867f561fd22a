package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

// DefaultDowncastThreshold is the spot count above which built proximity
// matrices store single-precision weights.
const DefaultDowncastThreshold = 1000

// Config drives proximity construction. At least one of Cutoff and
// NNeighbors must be set or every spot pair keeps a weight and the matrix
// stays dense.
type Config struct {
	Family    Family
	Parameter float64 // kernel decay scale, in coordinate units

	Cutoff     *float64 // zero weights below this value; nil leaves all
	NNeighbors int      // keep each spot's n nearest neighbours; 0 disables

	BypassDiagonal bool // zero self-proximity before cutoff and masking

	// DowncastThreshold overrides DefaultDowncastThreshold when positive.
	DowncastThreshold int
}

func (c Config) validate(spotCount int) error {
	if _, err := ParseFamily(string(c.Family)); err != nil {
		return err
	}
	if c.Parameter <= 0 {
		return apperrors.Configurationf("kernel parameter must be positive, got %v", c.Parameter)
	}
	if c.Cutoff == nil && c.NNeighbors <= 0 {
		return apperrors.Configuration("set a cutoff or a neighbour count, otherwise the proximity stays fully dense")
	}
	if c.Cutoff != nil && (math.IsNaN(*c.Cutoff) || *c.Cutoff < 0) {
		return apperrors.Configurationf("cutoff must be non-negative, got %v", *c.Cutoff)
	}
	if c.NNeighbors < 0 {
		return apperrors.Configurationf("neighbour count must be non-negative, got %d", c.NNeighbors)
	}
	if c.NNeighbors > 0 && c.NNeighbors >= spotCount {
		return apperrors.Configurationf("neighbour count %d must be below the spot count %d", c.NNeighbors, spotCount)
	}
	return nil
}

// Build computes a sparse proximity matrix from spot coordinates: pairwise
// Euclidean distances through the configured kernel, optional diagonal
// bypass, cutoff thresholding and nearest-neighbour masking. The result is
// symmetric up to the neighbour mask, which keeps each spot's own nearest
// set exactly as the kernel sees it.
func Build(coords [][2]float64, cfg Config) (*dataset.Proximity, error) {
	if len(coords) == 0 {
		return nil, apperrors.Validation("spatial coordinates missing or empty")
	}
	if err := cfg.validate(len(coords)); err != nil {
		return nil, err
	}
	family, _ := ParseFamily(string(cfg.Family))

	n := len(coords)
	prox := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		prox.Set(i, i, family.weight(0, cfg.Parameter))
		for j := i + 1; j < n; j++ {
			dx := coords[i][0] - coords[j][0]
			dy := coords[i][1] - coords[j][1]
			w := family.weight(math.Hypot(dx, dy), cfg.Parameter)
			prox.Set(i, j, w)
			prox.Set(j, i, w)
		}
	}

	if cfg.BypassDiagonal {
		for i := 0; i < n; i++ {
			prox.Set(i, i, 0)
		}
	}

	if cfg.Cutoff != nil {
		cut := *cfg.Cutoff
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if prox.At(i, j) < cut {
					prox.Set(i, j, 0)
				}
			}
		}
	}

	if cfg.NNeighbors > 0 {
		applyNeighbourMask(prox, cfg.NNeighbors)
	}

	threshold := cfg.DowncastThreshold
	if threshold <= 0 {
		threshold = DefaultDowncastThreshold
	}
	return dataset.CompressProximity(prox, n > threshold)
}

// BuildFor builds from a bundle's coordinates and attaches the result
func BuildFor(b *dataset.ExpressionBundle, cfg Config) (*dataset.Proximity, error) {
	prox, err := Build(b.Coords, cfg)
	if err != nil {
		return nil, err
	}
	if err := b.AttachProximity(prox); err != nil {
		return nil, apperrors.Wrap(err, "failed to attach proximity")
	}
	return prox, nil
}

// applyNeighbourMask keeps, per spot, the k rows nearest to its own
// proximity row (self included) and zeroes the rest. Neighbourhood is judged
// on the weight vectors, not raw coordinates, so cutoffs already applied
// shape the mask.
func applyNeighbourMask(prox *mat.Dense, k int) {
	n, _ := prox.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = mat.Row(nil, i, prox)
	}

	keep := make([][]bool, n)
	dists := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		for r := 0; r < n; r++ {
			dists[r] = floats.Distance(rows[i], rows[r], 2)
			order[r] = r
		}
		sort.Slice(order, func(a, b int) bool {
			if dists[order[a]] != dists[order[b]] {
				return dists[order[a]] < dists[order[b]]
			}
			return order[a] < order[b]
		})
		keep[i] = make([]bool, n)
		for _, r := range order[:k] {
			keep[i][r] = true
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !keep[i][j] {
				prox.Set(i, j, 0)
			}
		}
	}
}

// CutoffAt is a convenience for building the optional cutoff field
func CutoffAt(v float64) *float64 { return &v }
