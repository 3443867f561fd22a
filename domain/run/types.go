package run

import (
	"gocoex/domain/core"
	"gocoex/domain/dataset"
)

// Status tracks an analysis run through its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Parameters captures everything that determines a run's output besides the
// dataset itself. Persisting them with the dataset fingerprint makes any run
// replayable.
type Parameters struct {
	Method string `json:"method"`

	// Proximity construction
	KernelFamily   string   `json:"kernel_family"`
	KernelParam    float64  `json:"kernel_param"`
	KernelCutoff   *float64 `json:"kernel_cutoff,omitempty"`
	NNeighbors     int      `json:"n_neighbors,omitempty"`
	BypassDiagonal bool     `json:"bypass_diagonal"`

	// Masked per-spot variant instead of the vectorized path
	Masked          bool    `json:"masked"`
	WeightThreshold float64 `json:"weight_threshold"`

	// Significance testing; zero permutations skips it
	Permutations int   `json:"permutations"`
	Seed         int64 `json:"seed"`
	PositiveOnly bool  `json:"positive_only"`

	// Metabolite estimation ahead of scoring
	Estimator   string                   `json:"estimator,omitempty"`
	Metabolites []dataset.MetaboliteSpec `json:"metabolites,omitempty"`
}

// Validate checks structural completeness. Name resolution against the
// closed statistic and kernel sets happens in the engine adapters.
func (p Parameters) Validate() error {
	if p.Method == "" {
		return core.NewValidationError("parameters", "method is required")
	}
	if p.KernelFamily == "" {
		return core.NewValidationError("parameters", "kernel family is required")
	}
	if p.Permutations < 0 {
		return core.NewValidationError("parameters", "permutation count cannot be negative")
	}
	return nil
}

// AnalysisRun is the persisted record of one scoring run
type AnalysisRun struct {
	ID     core.RunID `json:"id"`
	Status Status     `json:"status"`

	Params      Parameters       `json:"params"`
	DatasetHash core.DatasetHash `json:"dataset_hash"`
	Fingerprint core.Hash        `json:"fingerprint"`

	SpotCount int `json:"spot_count"`
	PairCount int `json:"pair_count"`

	CreatedAt   core.Timestamp `json:"created_at"`
	CompletedAt core.Timestamp `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`

	Summaries []PairSummary `json:"summaries,omitempty"`
}

// NewAnalysisRun opens a pending run record
func NewAnalysisRun(params Parameters, datasetHash core.DatasetHash, spots, pairs int) *AnalysisRun {
	return &AnalysisRun{
		ID:          core.RunID(core.NewID()),
		Status:      StatusPending,
		Params:      params,
		DatasetHash: datasetHash,
		Fingerprint: NewRunFingerprint(datasetHash, params),
		SpotCount:   spots,
		PairCount:   pairs,
		CreatedAt:   core.Now(),
	}
}

// Complete marks the run finished
func (r *AnalysisRun) Complete(summaries []PairSummary) {
	r.Status = StatusCompleted
	r.Summaries = summaries
	r.CompletedAt = core.Now()
}

// Fail marks the run failed with a reason
func (r *AnalysisRun) Fail(reason string) {
	r.Status = StatusFailed
	r.Error = reason
	r.CompletedAt = core.Now()
}

// PairSummary condenses one pair's spot-level results for listing and
// reporting without hauling the full matrices around
type PairSummary struct {
	Pair core.PairKey `json:"pair"`

	// MeanStat averages the local statistic over spots
	MeanStat float64 `json:"mean_stat"`
	// FracSignificant is the share of spots with p <= 0.05; zero when the
	// run skipped permutations
	FracSignificant float64 `json:"frac_significant"`
	// InteractionScore is the joint-magnitude score: the mean of the two
	// entity means, zero when either side is silent
	InteractionScore float64 `json:"interaction_score"`

	// Simplified category counts over spots
	Agreeing  int `json:"agreeing"`
	Opposing  int `json:"opposing"`
	Undefined int `json:"undefined"`
}

// Result carries the full spot-level output of a run
type Result struct {
	RunID core.RunID     `json:"run_id"`
	Pairs []core.PairKey `json:"pairs"`
	Spots []core.SpotID  `json:"spots"`

	// Stats[i][j] is the local statistic of pair j at spot i; Pvals aligns
	// with it and is nil when the run skipped permutations
	Stats [][]float64 `json:"stats"`
	Pvals [][]float64 `json:"pvals,omitempty"`

	Categories [][]string `json:"categories,omitempty"`
	Simplified [][]int8   `json:"simplified,omitempty"`
}
