package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gocoex/domain/core"
)

// ExpressionBundle is the canonical data object for all spatial computation.
// Rows are spots (or cells), columns are entities; coordinates align with
// rows. A built proximity matrix can be attached once and reused by every
// statistic on the same dataset.
type ExpressionBundle struct {
	Spots    []core.SpotID
	Entities []core.EntityKey
	Values   [][]float64  // rows=spots, cols=entities
	Coords   [][2]float64 // per-spot (x, y)

	Proximity *Proximity // nil until attached

	// Metadata
	CreatedAt   core.Timestamp
	Fingerprint core.DatasetHash

	index map[core.EntityKey]int
}

// NewExpressionBundle validates and assembles a bundle. The value matrix is
// taken by reference; callers hand over ownership.
func NewExpressionBundle(spots []core.SpotID, entities []core.EntityKey, values [][]float64, coords [][2]float64) (*ExpressionBundle, error) {
	b := &ExpressionBundle{
		Spots:     spots,
		Entities:  entities,
		Values:    values,
		Coords:    coords,
		CreatedAt: core.Now(),
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.Fingerprint = core.ComputeDatasetHash(spots, entities, values)
	b.buildIndex()
	return b, nil
}

func (b *ExpressionBundle) buildIndex() {
	b.index = make(map[core.EntityKey]int, len(b.Entities))
	for i, key := range b.Entities {
		b.index[key] = i
	}
}

// Validate ensures the bundle is internally consistent
func (b *ExpressionBundle) Validate() error {
	if len(b.Values) == 0 || len(b.Entities) == 0 {
		return core.ErrInsufficientData
	}
	if len(b.Spots) != len(b.Values) {
		return core.NewValidationError("spots", "length mismatch with value rows")
	}
	if len(b.Coords) != len(b.Values) {
		return core.ErrEmptyCoordinates
	}

	colCount := len(b.Entities)
	for i, row := range b.Values {
		if len(row) != colCount {
			return core.NewValidationError("values",
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), colCount))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: spot %d entity %s", core.ErrNonFiniteValue, i, b.Entities[j])
			}
		}
	}
	if b.Proximity != nil && b.Proximity.Dim() != len(b.Spots) {
		return core.ErrProximityMismatch
	}
	return nil
}

// AttachProximity stores a built proximity matrix on the bundle after
// checking its dimension against the spot count
func (b *ExpressionBundle) AttachProximity(p *Proximity) error {
	if p == nil {
		return core.ErrProximityMissing
	}
	if p.Dim() != len(b.Spots) {
		return core.ErrProximityMismatch
	}
	b.Proximity = p
	return nil
}

// HasProximity reports whether a proximity matrix is attached
func (b *ExpressionBundle) HasProximity() bool {
	return b.Proximity != nil
}

// EntityIndex returns the column index for an entity key
func (b *ExpressionBundle) EntityIndex(key core.EntityKey) (int, bool) {
	if b.index == nil {
		b.buildIndex()
	}
	i, ok := b.index[key]
	return i, ok
}

// Column returns a copy of one entity's per-spot values
func (b *ExpressionBundle) Column(key core.EntityKey) ([]float64, bool) {
	idx, found := b.EntityIndex(key)
	if !found {
		return nil, false
	}
	data := make([]float64, len(b.Values))
	for i, row := range b.Values {
		data[i] = row[idx]
	}
	return data, true
}

// SubMatrix builds a dense spots x len(keys) matrix of the named entities,
// in the given order. Unknown keys fail the whole call.
func (b *ExpressionBundle) SubMatrix(keys []core.EntityKey) (*mat.Dense, error) {
	if len(keys) == 0 {
		return nil, core.ErrInsufficientData
	}
	cols := make([]int, len(keys))
	for j, key := range keys {
		idx, found := b.EntityIndex(key)
		if !found {
			return nil, core.NewUnknownEntityError(key)
		}
		cols[j] = idx
	}
	out := mat.NewDense(len(b.Values), len(keys), nil)
	for i, row := range b.Values {
		for j, c := range cols {
			out.Set(i, j, row[c])
		}
	}
	return out, nil
}

// PairMatrices builds the aligned x and y matrices for a pair list: column j
// of each output corresponds to pairs[j]
func (b *ExpressionBundle) PairMatrices(pairs []PairSpec) (xMat, yMat *mat.Dense, err error) {
	if len(pairs) == 0 {
		return nil, nil, core.ErrInsufficientData
	}
	xKeys := make([]core.EntityKey, len(pairs))
	yKeys := make([]core.EntityKey, len(pairs))
	for j, p := range pairs {
		xKeys[j] = p.X
		yKeys[j] = p.Y
	}
	if xMat, err = b.SubMatrix(xKeys); err != nil {
		return nil, nil, err
	}
	if yMat, err = b.SubMatrix(yKeys); err != nil {
		return nil, nil, err
	}
	return xMat, yMat, nil
}

// SpotCount returns the number of spots (rows)
func (b *ExpressionBundle) SpotCount() int {
	return len(b.Values)
}

// EntityCount returns the number of entities (columns)
func (b *ExpressionBundle) EntityCount() int {
	return len(b.Entities)
}
