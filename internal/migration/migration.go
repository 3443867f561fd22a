package migration

import (
	"context"

	"gocoex/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAnalysisRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_runs table")
	}

	if err := r.createPairSummariesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_pair_summaries table")
	}

	if err := r.createResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createAnalysisRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id UUID PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			params JSONB NOT NULL,
			dataset_hash TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			spot_count INTEGER NOT NULL DEFAULT 0,
			pair_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (r *MigrationRunner) createPairSummariesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_pair_summaries (
			run_id UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			pair TEXT NOT NULL,
			mean_stat DOUBLE PRECISION NOT NULL DEFAULT 0,
			frac_significant DOUBLE PRECISION NOT NULL DEFAULT 0,
			interaction_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			agreeing INTEGER NOT NULL DEFAULT 0,
			opposing INTEGER NOT NULL DEFAULT 0,
			undefined INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, pair)
		)
	`)
	return err
}

func (r *MigrationRunner) createResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_results (
			run_id UUID PRIMARY KEY REFERENCES analysis_runs(id) ON DELETE CASCADE,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_status ON analysis_runs(status)",
		"CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON analysis_runs(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON analysis_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_summaries_run_id ON analysis_pair_summaries(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_summaries_pair ON analysis_pair_summaries(pair)",
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return errors.Wrapf(err, "failed to create index: %s", index)
		}
	}

	return nil
}
