package ports

import (
	"context"

	"gocoex/domain/core"
	"gocoex/domain/run"
)

// RunRepository defines the interface for analysis run storage operations
type RunRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, ar *run.AnalysisRun) error
	GetByID(ctx context.Context, id core.RunID) (*run.AnalysisRun, error)
	List(ctx context.Context, limit, offset int) ([]*run.AnalysisRun, error)
	Update(ctx context.Context, ar *run.AnalysisRun) error

	// Special queries
	GetByFingerprint(ctx context.Context, fp core.Hash) (*run.AnalysisRun, error)
	ListByStatus(ctx context.Context, status run.Status) ([]*run.AnalysisRun, error)

	// Result storage; results are written once when a run completes
	SaveResult(ctx context.Context, res *run.Result) error
	GetResult(ctx context.Context, id core.RunID) (*run.Result, error)
}
