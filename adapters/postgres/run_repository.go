package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"gocoex/domain/core"
	"gocoex/domain/run"
	apperrors "gocoex/internal/errors"
	"gocoex/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// runRow mirrors the analysis_runs table
type runRow struct {
	ID           string       `db:"id"`
	Status       string       `db:"status"`
	Params       []byte       `db:"params"`
	DatasetHash  string       `db:"dataset_hash"`
	Fingerprint  string       `db:"fingerprint"`
	SpotCount    int          `db:"spot_count"`
	PairCount    int          `db:"pair_count"`
	ErrorMessage string       `db:"error_message"`
	CreatedAt    time.Time    `db:"created_at"`
	CompletedAt  sql.NullTime `db:"completed_at"`
}

// summaryRow mirrors the analysis_pair_summaries table
type summaryRow struct {
	RunID            string  `db:"run_id"`
	Position         int     `db:"position"`
	Pair             string  `db:"pair"`
	MeanStat         float64 `db:"mean_stat"`
	FracSignificant  float64 `db:"frac_significant"`
	InteractionScore float64 `db:"interaction_score"`
	Agreeing         int     `db:"agreeing"`
	Opposing         int     `db:"opposing"`
	Undefined        int     `db:"undefined"`
}

const runColumns = `id, status, params, dataset_hash, fingerprint, spot_count, pair_count,
	COALESCE(error_message, '') AS error_message, created_at, completed_at`

// Create inserts a new run record. Summaries are written on Update when the
// run completes.
func (r *runRepository) Create(ctx context.Context, ar *run.AnalysisRun) error {
	paramsJSON, err := json.Marshal(ar.Params)
	if err != nil {
		return apperrors.Wrap(err, "marshaling run parameters")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, status, params, dataset_hash, fingerprint, spot_count, pair_count, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ar.ID, ar.Status, paramsJSON, ar.DatasetHash, ar.Fingerprint, ar.SpotCount, ar.PairCount,
		ar.Error, ar.CreatedAt.Time(), nullableTime(ar.CompletedAt))
	if err != nil {
		return apperrors.Wrap(err, "inserting run")
	}
	return nil
}

// GetByID retrieves a run with its pair summaries
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*run.AnalysisRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("run")
		}
		return nil, apperrors.Wrap(err, "loading run")
	}
	ar, err := rowToRun(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadSummaries(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// List pages through runs newest first. Summaries are left out; load a
// single run for the full record.
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]*run.AnalysisRun, error) {
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+` FROM analysis_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing runs")
	}
	return rowsToRuns(rows)
}

// Update rewrites the run record and replaces its summaries in one transaction
func (r *runRepository) Update(ctx context.Context, ar *run.AnalysisRun) error {
	paramsJSON, err := json.Marshal(ar.Params)
	if err != nil {
		return apperrors.Wrap(err, "marshaling run parameters")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "opening transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE analysis_runs
		SET status = $2, params = $3, error_message = $4, completed_at = $5, spot_count = $6, pair_count = $7
		WHERE id = $1
	`, ar.ID, ar.Status, paramsJSON, ar.Error, nullableTime(ar.CompletedAt), ar.SpotCount, ar.PairCount)
	if err != nil {
		return apperrors.Wrap(err, "updating run")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("run")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_pair_summaries WHERE run_id = $1`, ar.ID); err != nil {
		return apperrors.Wrap(err, "clearing summaries")
	}
	for i, sm := range ar.Summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_pair_summaries (run_id, position, pair, mean_stat, frac_significant, interaction_score, agreeing, opposing, undefined)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ar.ID, i, sm.Pair, sm.MeanStat, sm.FracSignificant, sm.InteractionScore, sm.Agreeing, sm.Opposing, sm.Undefined)
		if err != nil {
			return apperrors.Wrap(err, "inserting summary")
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, "committing run update")
	}
	return nil
}

// GetByFingerprint finds the newest run sharing a fingerprint, for replay
// detection
func (r *runRepository) GetByFingerprint(ctx context.Context, fp core.Hash) (*run.AnalysisRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+runColumns+` FROM analysis_runs
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, fp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("run")
		}
		return nil, apperrors.Wrap(err, "loading run by fingerprint")
	}
	ar, err := rowToRun(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadSummaries(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// ListByStatus retrieves runs in a given lifecycle state, newest first
func (r *runRepository) ListByStatus(ctx context.Context, status run.Status) ([]*run.AnalysisRun, error) {
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+` FROM analysis_runs
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
	`, status)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing runs by status")
	}
	return rowsToRuns(rows)
}

// SaveResult stores the full spot-level result payload
func (r *runRepository) SaveResult(ctx context.Context, res *run.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return apperrors.Wrap(err, "marshaling result")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (run_id, payload, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (run_id) DO UPDATE SET payload = EXCLUDED.payload
	`, res.RunID, payload)
	if err != nil {
		return apperrors.Wrap(err, "saving result")
	}
	return nil
}

// GetResult loads the full spot-level result payload
func (r *runRepository) GetResult(ctx context.Context, id core.RunID) (*run.Result, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM analysis_results WHERE run_id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("run result")
		}
		return nil, apperrors.Wrap(err, "loading result")
	}
	var res run.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, apperrors.Wrap(err, "unmarshaling result")
	}
	return &res, nil
}

func (r *runRepository) loadSummaries(ctx context.Context, ar *run.AnalysisRun) error {
	var rows []summaryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, position, pair, mean_stat, frac_significant, interaction_score, agreeing, opposing, undefined
		FROM analysis_pair_summaries
		WHERE run_id = $1
		ORDER BY position
	`, ar.ID)
	if err != nil {
		return apperrors.Wrap(err, "loading summaries")
	}
	if len(rows) == 0 {
		return nil
	}
	ar.Summaries = make([]run.PairSummary, len(rows))
	for i, row := range rows {
		ar.Summaries[i] = run.PairSummary{
			Pair:             core.PairKey(row.Pair),
			MeanStat:         row.MeanStat,
			FracSignificant:  row.FracSignificant,
			InteractionScore: row.InteractionScore,
			Agreeing:         row.Agreeing,
			Opposing:         row.Opposing,
			Undefined:        row.Undefined,
		}
	}
	return nil
}

func rowToRun(row runRow) (*run.AnalysisRun, error) {
	ar := &run.AnalysisRun{
		ID:          core.RunID(row.ID),
		Status:      run.Status(row.Status),
		DatasetHash: core.DatasetHash(row.DatasetHash),
		Fingerprint: core.Hash(row.Fingerprint),
		SpotCount:   row.SpotCount,
		PairCount:   row.PairCount,
		Error:       row.ErrorMessage,
		CreatedAt:   core.NewTimestamp(row.CreatedAt),
	}
	if row.CompletedAt.Valid {
		ar.CompletedAt = core.NewTimestamp(row.CompletedAt.Time)
	}
	if err := json.Unmarshal(row.Params, &ar.Params); err != nil {
		return nil, apperrors.Wrap(err, "unmarshaling run parameters")
	}
	return ar, nil
}

func rowsToRuns(rows []runRow) ([]*run.AnalysisRun, error) {
	out := make([]*run.AnalysisRun, len(rows))
	for i, row := range rows {
		ar, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		out[i] = ar
	}
	return out, nil
}

func nullableTime(t core.Timestamp) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.Time(), Valid: true}
}
