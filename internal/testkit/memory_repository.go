package testkit

import (
	"context"
	"sort"
	"sync"

	"gocoex/domain/core"
	"gocoex/domain/run"
	apperrors "gocoex/internal/errors"
)

// InMemoryRunRepository implements ports.RunRepository with in-memory storage
type InMemoryRunRepository struct {
	runs    map[core.RunID]*run.AnalysisRun
	results map[core.RunID]*run.Result
	mu      sync.RWMutex
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs:    make(map[core.RunID]*run.AnalysisRun),
		results: make(map[core.RunID]*run.Result),
	}
}

func (r *InMemoryRunRepository) Create(ctx context.Context, ar *run.AnalysisRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[ar.ID]; exists {
		return apperrors.Validationf("run %s already exists", ar.ID)
	}
	r.runs[ar.ID] = copyRun(ar)
	return nil
}

func (r *InMemoryRunRepository) GetByID(ctx context.Context, id core.RunID) (*run.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ar, exists := r.runs[id]
	if !exists {
		return nil, apperrors.NotFound("run")
	}
	return copyRun(ar), nil
}

func (r *InMemoryRunRepository) List(ctx context.Context, limit, offset int) ([]*run.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*run.AnalysisRun, 0, len(r.runs))
	for _, ar := range r.runs {
		all = append(all, copyRun(ar))
	}
	// Newest first, ID as tiebreak so paging is stable
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].CreatedAt.Time(), all[j].CreatedAt.Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []*run.AnalysisRun{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *InMemoryRunRepository) Update(ctx context.Context, ar *run.AnalysisRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[ar.ID]; !exists {
		return apperrors.NotFound("run")
	}
	r.runs[ar.ID] = copyRun(ar)
	return nil
}

func (r *InMemoryRunRepository) GetByFingerprint(ctx context.Context, fp core.Hash) (*run.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ar := range r.runs {
		if ar.Fingerprint == fp {
			return copyRun(ar), nil
		}
	}
	return nil, apperrors.NotFound("run")
}

func (r *InMemoryRunRepository) ListByStatus(ctx context.Context, status run.Status) ([]*run.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*run.AnalysisRun
	for _, ar := range r.runs {
		if ar.Status == status {
			out = append(out, copyRun(ar))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time().After(out[j].CreatedAt.Time()) })
	return out, nil
}

func (r *InMemoryRunRepository) SaveResult(ctx context.Context, res *run.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[res.RunID]; !exists {
		return apperrors.NotFound("run")
	}
	r.results[res.RunID] = res
	return nil
}

func (r *InMemoryRunRepository) GetResult(ctx context.Context, id core.RunID) (*run.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.results[id]
	if !exists {
		return nil, apperrors.NotFound("run result")
	}
	return res, nil
}

// copyRun shields stored records from caller mutation
func copyRun(ar *run.AnalysisRun) *run.AnalysisRun {
	dup := *ar
	dup.Summaries = append([]run.PairSummary(nil), ar.Summaries...)
	return &dup
}
