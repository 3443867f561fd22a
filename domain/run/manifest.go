package run

import (
	"crypto/sha256"
	"fmt"

	"gocoex/domain/core"
)

// NewRunFingerprint hashes everything that determines a run's output: the
// dataset fingerprint and the full parameter set. Two runs with equal
// fingerprints must produce identical matrices.
func NewRunFingerprint(datasetHash core.DatasetHash, params Parameters) core.Hash {
	cutoff := "none"
	if params.KernelCutoff != nil {
		cutoff = fmt.Sprintf("%v", *params.KernelCutoff)
	}
	mets := ""
	for _, m := range params.Metabolites {
		mets += fmt.Sprintf("%s<%v-%v;", m.Key, m.Produced, m.Degraded)
	}

	// Deterministic string representation
	data := fmt.Sprintf("dataset:%s|method:%s|kernel:%s:%v:cut=%s:knn=%d:diag=%t|masked:%t:thr=%v|perm:%d:seed=%d:pos=%t|est:%s|mets:%s",
		datasetHash, params.Method,
		params.KernelFamily, params.KernelParam, cutoff, params.NNeighbors, params.BypassDiagonal,
		params.Masked, params.WeightThreshold,
		params.Permutations, params.Seed, params.PositiveOnly,
		params.Estimator, mets)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
