package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run. Returns ErrDuplicateKey if execution_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.ExecutionID == "" || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	symbols := r.Symbols
	if symbols == nil {
		symbols = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO backtest_runs (
			execution_id, run_id, strategy, symbols,
			started_at, finished_at, ticks_fed, config
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		r.ExecutionID, r.RunID, r.Strategy, symbols,
		r.StartedAt, r.FinishedAt, r.TicksFed, nullableJSON(r.Config),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByExecutionID retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) GetByExecutionID(ctx context.Context, executionID string) (*domain.RunRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT execution_id, run_id, strategy, symbols,
		       started_at, finished_at, ticks_fed, config
		FROM backtest_runs
		WHERE execution_id = $1
	`, executionID)

	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run: %w", err)
	}
	return r, nil
}

// GetByRunID retrieves all executions of a run, ordered by started_at ASC.
func (s *RunStore) GetByRunID(ctx context.Context, runID string) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT execution_id, run_id, strategy, symbols,
		       started_at, finished_at, ticks_fed, config
		FROM backtest_runs
		WHERE run_id = $1
		ORDER BY started_at ASC, execution_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	err := row.Scan(
		&r.ExecutionID, &r.RunID, &r.Strategy, &r.Symbols,
		&r.StartedAt, &r.FinishedAt, &r.TicksFed, &r.Config,
	)
	if err != nil {
		return nil, err
	}
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	return &r, nil
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
