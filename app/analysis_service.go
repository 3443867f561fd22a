package app

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gocoex/adapters/spatial"
	"gocoex/adapters/stats/estimate"
	"gocoex/adapters/stats/local"
	"gocoex/domain/core"
	"gocoex/domain/dataset"
	"gocoex/domain/run"
	"gocoex/internal"
	apperrors "gocoex/internal/errors"
	"gocoex/ports"
)

// significanceAlpha is the p-value cutoff used when summarising how many
// spots of a pair tested significant
const significanceAlpha = 0.05

// AnalysisService orchestrates a full scoring run: metabolite estimation,
// proximity construction, local statistics, permutation significance and
// sign categorisation, with the outcome persisted through the run repository.
type AnalysisService struct {
	runs   ports.RunRepository
	engine *local.Engine
	sem    *semaphore.Weighted
	logger *internal.Logger
}

// AnalysisRequest defines the inputs for one scoring run
type AnalysisRequest struct {
	Bundle *dataset.ExpressionBundle
	Pairs  []dataset.PairSpec
	Params run.Parameters
}

// AnalysisOutput pairs the persisted run record with its full spot-level result
type AnalysisOutput struct {
	Run    *run.AnalysisRun
	Result *run.Result
}

// NewAnalysisService creates an analysis service. workers sizes the engine's
// scoring pool and maxConcurrent caps simultaneous runs; the repository may
// be nil for ephemeral use, in which case nothing is persisted.
func NewAnalysisService(runs ports.RunRepository, workers int, maxConcurrent int64) *AnalysisService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &AnalysisService{
		runs:   runs,
		engine: local.NewEngine(workers),
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: internal.DefaultLogger.Named("analysis"),
	}
}

// Run executes a complete analysis. The run record is created as pending
// before scoring starts, so a crash mid-run leaves an inspectable record.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*AnalysisOutput, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(err, "waiting for analysis slot")
	}
	defer s.sem.Release(1)

	startTime := time.Now()

	if req.Bundle == nil {
		return nil, apperrors.Validation("expression bundle is required")
	}
	if len(req.Pairs) == 0 {
		return nil, apperrors.Validation("at least one pair is required")
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	method, err := local.ParseMethod(req.Params.Method)
	if err != nil {
		return nil, err
	}

	bundle, err := s.prepareBundle(req.Bundle, req.Params)
	if err != nil {
		return nil, err
	}

	ar := run.NewAnalysisRun(req.Params, bundle.Fingerprint, bundle.SpotCount(), len(req.Pairs))
	if err := s.persistCreate(ctx, ar); err != nil {
		return nil, err
	}

	ar.Status = run.StatusRunning
	if err := s.persistUpdate(ctx, ar); err != nil {
		return nil, err
	}

	result, summaries, err := s.score(ctx, bundle, req.Pairs, method, req.Params)
	if err != nil {
		ar.Fail(err.Error())
		if perr := s.persistUpdate(ctx, ar); perr != nil {
			s.logger.Error("recording failure of run %s: %v", ar.ID, perr)
		}
		return nil, err
	}
	result.RunID = ar.ID

	ar.Complete(summaries)
	if err := s.persistUpdate(ctx, ar); err != nil {
		return nil, err
	}
	if s.runs != nil {
		if err := s.runs.SaveResult(ctx, result); err != nil {
			return nil, apperrors.Wrap(err, "saving run result")
		}
	}

	s.logger.Info("run %s completed: %d pairs x %d spots with %s in %v",
		ar.ID, len(req.Pairs), bundle.SpotCount(), method, time.Since(startTime))

	return &AnalysisOutput{Run: ar, Result: result}, nil
}

// prepareBundle extends the bundle with metabolite estimates when requested
// and builds the proximity matrix the parameters describe. An attached
// proximity is always rebuilt so the run record stays truthful about how
// weights were derived.
func (s *AnalysisService) prepareBundle(b *dataset.ExpressionBundle, p run.Parameters) (*dataset.ExpressionBundle, error) {
	if len(p.Metabolites) > 0 {
		est := estimate.EstimatorMean
		if p.Estimator != "" {
			parsed, err := estimate.ParseEstimator(p.Estimator)
			if err != nil {
				return nil, err
			}
			est = parsed
		}
		extended, err := estimate.WithEstimates(b, p.Metabolites, est)
		if err != nil {
			return nil, err
		}
		b = extended
	}

	family, err := spatial.ParseFamily(p.KernelFamily)
	if err != nil {
		return nil, err
	}
	if _, err := spatial.BuildFor(b, spatial.Config{
		Family:         family,
		Parameter:      p.KernelParam,
		Cutoff:         p.KernelCutoff,
		NNeighbors:     p.NNeighbors,
		BypassDiagonal: p.BypassDiagonal,
	}); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *AnalysisService) score(ctx context.Context, b *dataset.ExpressionBundle, pairs []dataset.PairSpec, method local.Method, p run.Parameters) (*run.Result, []run.PairSummary, error) {
	xMat, yMat, err := b.PairMatrices(pairs)
	if err != nil {
		return nil, nil, err
	}

	var stats *mat.Dense
	if p.Masked {
		stats, err = s.engine.ComputeLocalMasked(ctx, xMat, yMat, b.Proximity, method, p.WeightThreshold)
	} else {
		stats, err = s.engine.ComputeLocal(ctx, xMat, yMat, b.Proximity, method)
	}
	if err != nil {
		return nil, nil, err
	}

	var pvals *mat.Dense
	if p.Permutations > 0 {
		pvals, err = s.engine.PermutationPvalues(ctx, xMat, yMat, b.Proximity, stats, method, local.PermutationConfig{
			NPerm:        p.Permutations,
			Seed:         p.Seed,
			PositiveOnly: p.PositiveOnly,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	cats, err := local.Categorize(xMat, yMat)
	if err != nil {
		return nil, nil, err
	}

	keys := make([]core.PairKey, len(pairs))
	for j, pr := range pairs {
		keys[j] = pr.Key()
	}

	result := &run.Result{
		Pairs:      keys,
		Spots:      append([]core.SpotID(nil), b.Spots...),
		Stats:      denseRows(stats),
		Categories: cats.Combined,
		Simplified: cats.Simplified,
	}
	if pvals != nil {
		result.Pvals = denseRows(pvals)
	}

	summaries := summarise(pairs, xMat, yMat, stats, pvals, cats)
	return result, summaries, nil
}

// summarise reduces spot-level matrices to one PairSummary per pair
func summarise(pairs []dataset.PairSpec, xMat, yMat, stats, pvals *mat.Dense, cats *local.Categories) []run.PairSummary {
	n, _ := stats.Dims()
	out := make([]run.PairSummary, len(pairs))
	for j, pr := range pairs {
		sm := run.PairSummary{Pair: pr.Key()}

		sm.MeanStat = stat.Mean(mat.Col(nil, j, stats), nil)
		sm.InteractionScore = interactionScore(mat.Col(nil, j, xMat), mat.Col(nil, j, yMat))

		if pvals != nil {
			hits := 0
			for i := 0; i < n; i++ {
				if pvals.At(i, j) <= significanceAlpha {
					hits++
				}
			}
			sm.FracSignificant = float64(hits) / float64(n)
		}

		for i := 0; i < n; i++ {
			switch cats.Simplified[i][j] {
			case 1:
				sm.Agreeing++
			case -1:
				sm.Opposing++
			default:
				sm.Undefined++
			}
		}
		out[j] = sm
	}
	return out
}

// interactionScore is the joint-magnitude score of a pair: the mean of the
// two entity means, zero when either side is silent everywhere
func interactionScore(x, y []float64) float64 {
	mx := stat.Mean(x, nil)
	my := stat.Mean(y, nil)
	if mx == 0 || my == 0 {
		return 0
	}
	return (mx + my) / 2
}

func denseRows(m *mat.Dense) [][]float64 {
	n, _ := m.Dims()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out
}

func (s *AnalysisService) persistCreate(ctx context.Context, ar *run.AnalysisRun) error {
	if s.runs == nil {
		return nil
	}
	if err := s.runs.Create(ctx, ar); err != nil {
		return apperrors.Wrap(err, "creating run record")
	}
	return nil
}

func (s *AnalysisService) persistUpdate(ctx context.Context, ar *run.AnalysisRun) error {
	if s.runs == nil {
		return nil
	}
	if err := s.runs.Update(ctx, ar); err != nil {
		return apperrors.Wrap(err, "updating run record")
	}
	return nil
}

// GetRun loads a stored run record
func (s *AnalysisService) GetRun(ctx context.Context, id core.RunID) (*run.AnalysisRun, error) {
	if s.runs == nil {
		return nil, apperrors.Configuration("no run repository configured")
	}
	return s.runs.GetByID(ctx, id)
}

// GetResult loads the full spot-level result of a stored run
func (s *AnalysisService) GetResult(ctx context.Context, id core.RunID) (*run.Result, error) {
	if s.runs == nil {
		return nil, apperrors.Configuration("no run repository configured")
	}
	return s.runs.GetResult(ctx, id)
}

// ListRuns pages through stored run records, newest first
func (s *AnalysisService) ListRuns(ctx context.Context, limit, offset int) ([]*run.AnalysisRun, error) {
	if s.runs == nil {
		return nil, apperrors.Configuration("no run repository configured")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.runs.List(ctx, limit, offset)
}
