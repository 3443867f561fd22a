// Package estimate aggregates gene sets into per-spot scalar estimates,
// mainly to stand in metabolite abundances inferred from the expression of
// producing and degrading enzymes.
package estimate

import (
	"strings"

	"github.com/montanaflynn/stats"

	"gocoex/domain/core"
	"gocoex/domain/dataset"
	apperrors "gocoex/internal/errors"
)

// Estimator selects the per-spot aggregation over a gene set. The set is
// closed and resolved once per call.
type Estimator string

const (
	EstimatorMean          Estimator = "mean"
	EstimatorNonZeroMean   Estimator = "nnzmean"
	EstimatorGeometricMean Estimator = "gmean"
	EstimatorHarmonicMean  Estimator = "hmean"
	EstimatorMax           Estimator = "max"
)

// Estimators lists the supported aggregations in presentation order
func Estimators() []Estimator {
	return []Estimator{EstimatorMean, EstimatorNonZeroMean, EstimatorGeometricMean, EstimatorHarmonicMean, EstimatorMax}
}

// ParseEstimator resolves an aggregation by name
func ParseEstimator(name string) (Estimator, error) {
	e := Estimator(strings.ToLower(strings.TrimSpace(name)))
	switch e {
	case EstimatorMean, EstimatorNonZeroMean, EstimatorGeometricMean, EstimatorHarmonicMean, EstimatorMax:
		return e, nil
	default:
		return "", apperrors.Configurationf("unknown estimator %q (supported: mean, nnzmean, gmean, hmean, max)", name)
	}
}

// aggregate reduces one spot's gene-set values to a scalar. Values must be
// non-negative; zeros are legitimate dropout and each estimator has a
// defined zero behaviour (hmean and gmean collapse to 0, nnzmean ignores).
func (e Estimator) aggregate(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	for _, v := range values {
		if v < 0 {
			return 0, apperrors.Validationf("estimator %s requires non-negative expression, got %v", e, v)
		}
	}

	switch e {
	case EstimatorMean:
		return stats.Mean(values)
	case EstimatorNonZeroMean:
		sum, nnz := 0.0, 0
		for _, v := range values {
			if v != 0 {
				sum += v
				nnz++
			}
		}
		if nnz == 0 {
			return 0, nil
		}
		return sum / float64(nnz), nil
	case EstimatorGeometricMean:
		return stats.GeometricMean(values)
	case EstimatorHarmonicMean:
		for _, v := range values {
			if v == 0 {
				// limit of n/sum(1/x) as any x goes to 0
				return 0, nil
			}
		}
		return stats.HarmonicMean(values)
	case EstimatorMax:
		return stats.Max(values)
	default:
		return 0, apperrors.Configurationf("unknown estimator %q", string(e))
	}
}

// AggregateSet reduces a gene set to one value per spot. Keys absent from
// the bundle are skipped, matching how curated enzyme sets meet filtered
// expression panels; an empty or fully-absent set yields a zero vector.
func AggregateSet(b *dataset.ExpressionBundle, genes []core.EntityKey, est Estimator) ([]float64, error) {
	if _, err := ParseEstimator(string(est)); err != nil {
		return nil, err
	}

	cols := make([]int, 0, len(genes))
	for _, g := range genes {
		if idx, ok := b.EntityIndex(g); ok {
			cols = append(cols, idx)
		}
	}

	out := make([]float64, b.SpotCount())
	if len(cols) == 0 {
		return out, nil
	}

	values := make([]float64, len(cols))
	for i, row := range b.Values {
		for k, c := range cols {
			values[k] = row[c]
		}
		v, err := est.aggregate(values)
		if err != nil {
			return nil, apperrors.Wrapf(err, "aggregating %d genes at spot %d", len(cols), i)
		}
		out[i] = v
	}
	return out, nil
}

// Metabolite estimates per-spot abundance as aggregated production minus
// aggregated degradation, clipped at zero: degradation can at most cancel
// production, never drive a negative abundance.
func Metabolite(b *dataset.ExpressionBundle, spec dataset.MetaboliteSpec, est Estimator) ([]float64, error) {
	produced, err := AggregateSet(b, spec.Produced, est)
	if err != nil {
		return nil, err
	}
	degraded, err := AggregateSet(b, spec.Degraded, est)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(produced))
	for i := range out {
		v := produced[i] - degraded[i]
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}

// WithEstimates returns a new bundle extended with one column per metabolite
// spec, so estimated entities pair up with measured ones in downstream
// scoring. Spec keys colliding with existing entities fail the call.
func WithEstimates(b *dataset.ExpressionBundle, specs []dataset.MetaboliteSpec, est Estimator) (*dataset.ExpressionBundle, error) {
	if len(specs) == 0 {
		return b, nil
	}

	estimates := make([][]float64, len(specs))
	seen := make(map[core.EntityKey]bool, len(specs))
	for k, spec := range specs {
		if spec.Key == "" {
			return nil, apperrors.Validation("metabolite spec needs a key")
		}
		if _, exists := b.EntityIndex(spec.Key); exists {
			return nil, apperrors.Validationf("metabolite key %q collides with a measured entity", spec.Key)
		}
		if seen[spec.Key] {
			return nil, apperrors.Validationf("metabolite key %q appears twice", spec.Key)
		}
		seen[spec.Key] = true
		vals, err := Metabolite(b, spec, est)
		if err != nil {
			return nil, apperrors.Wrapf(err, "estimating metabolite %s", spec.Key)
		}
		estimates[k] = vals
	}

	entities := make([]core.EntityKey, 0, b.EntityCount()+len(specs))
	entities = append(entities, b.Entities...)
	for _, spec := range specs {
		entities = append(entities, spec.Key)
	}

	values := make([][]float64, b.SpotCount())
	for i, row := range b.Values {
		values[i] = make([]float64, 0, len(entities))
		values[i] = append(values[i], row...)
		for k := range specs {
			values[i] = append(values[i], estimates[k][i])
		}
	}

	extended, err := dataset.NewExpressionBundle(b.Spots, entities, values, b.Coords)
	if err != nil {
		return nil, err
	}
	if b.HasProximity() {
		if err := extended.AttachProximity(b.Proximity); err != nil {
			return nil, err
		}
	}
	return extended, nil
}
