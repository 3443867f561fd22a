package dataset

import (
	"gocoex/domain/core"
)

// PairSpec names one (x, y) entity pair to score. X plays the ligand role
// and Y the receptor role in communication terms, but any two columns work.
type PairSpec struct {
	X core.EntityKey `json:"x"`
	Y core.EntityKey `json:"y"`
}

// Key returns the pair's canonical "x^y" key
func (p PairSpec) Key() core.PairKey {
	return core.NewPairKey(p.X, p.Y)
}

// MetaboliteSpec describes how to estimate a metabolite from gene sets:
// aggregate the producing genes, aggregate the degrading genes, subtract,
// clip at zero.
type MetaboliteSpec struct {
	Key      core.EntityKey   `json:"key"`
	Produced []core.EntityKey `json:"produced"`
	Degraded []core.EntityKey `json:"degraded,omitempty"`
}

// PairsFromKeys parses "x^y" strings into pair specs
func PairsFromKeys(keys []string) ([]PairSpec, error) {
	pairs := make([]PairSpec, 0, len(keys))
	for _, raw := range keys {
		x, y, err := core.PairKey(raw).Split()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, PairSpec{X: x, Y: y})
	}
	return pairs, nil
}
