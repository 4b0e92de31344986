package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tick-backtest/internal/storage"
)

// IngestProgressStore is a PostgreSQL implementation of storage.IngestProgressStore.
// One row per symbol in ingest_progress.
type IngestProgressStore struct {
	pool *Pool
}

// NewIngestProgressStore creates a new PostgreSQL ingest progress store.
func NewIngestProgressStore(pool *Pool) *IngestProgressStore {
	return &IngestProgressStore{pool: pool}
}

// GetProgress returns the checkpoint for a symbol.
func (s *IngestProgressStore) GetProgress(ctx context.Context, symbol string) (*storage.IngestProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT symbol, last_id, last_time
		FROM ingest_progress
		WHERE symbol = $1
	`, symbol)

	var progress storage.IngestProgress
	err := row.Scan(&progress.Symbol, &progress.LastID, &progress.Time)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// SetProgress saves the checkpoint for a symbol.
// Uses upsert to handle initial insert and subsequent updates.
func (s *IngestProgressStore) SetProgress(ctx context.Context, progress *storage.IngestProgress) error {
	if progress == nil || progress.Symbol == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_progress (symbol, last_id, last_time, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE
		SET last_id = EXCLUDED.last_id,
		    last_time = EXCLUDED.last_time,
		    updated_at = NOW()
	`, progress.Symbol, progress.LastID, progress.Time)

	return err
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
