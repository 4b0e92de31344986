package clickhouse

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk adds multiple ticks. Fails entire batch on duplicate (symbol, id).
func (s *TickStore) InsertBulk(ctx context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	// Validate and check for intra-batch duplicates, tracking the id span per symbol
	type key struct {
		symbol string
		id     int64
	}
	type span struct{ min, max int64 }
	seen := make(map[key]struct{}, len(ticks))
	spans := make(map[string]span)
	for _, t := range ticks {
		if t.Symbol == "" || t.IsSynthetic {
			return storage.ErrInvalidInput
		}
		k := key{t.Symbol, t.ID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sp, ok := spans[t.Symbol]
		if !ok {
			sp = span{t.ID, t.ID}
		}
		sp.min = min(sp.min, t.ID)
		sp.max = max(sp.max, t.ID)
		spans[t.Symbol] = sp
	}

	// Check for duplicates against existing DB rows
	for symbol, sp := range spans {
		existing, err := s.idsInSpan(ctx, symbol, sp.min, sp.max)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, id := range existing {
			if _, dup := seen[key{symbol, id}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (symbol, seq, time, price, volume, bid, ask)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(t.Symbol, t.ID, t.Time, t.Price, t.Volume, t.Bid, t.Ask)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all ticks for a symbol, ordered by (time, id) ASC.
func (s *TickStore) GetBySymbol(ctx context.Context, symbol string) ([]domain.Tick, error) {
	query := `
		SELECT symbol, seq, time, price, volume, bid, ask
		FROM ticks
		WHERE symbol = ?
		ORDER BY time ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(ctx context.Context, symbol string, start, end float64) ([]domain.Tick, error) {
	query := `
		SELECT symbol, seq, time, price, volume, bid, ask
		FROM ticks
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// Symbols lists stored symbols in ascending order.
func (s *TickStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

// idsInSpan returns stored ids of a symbol within [lo, hi].
func (s *TickStore) idsInSpan(ctx context.Context, symbol string, lo, hi int64) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT seq FROM ticks
		WHERE symbol = ? AND seq >= ? AND seq <= ?
	`, symbol, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanTicks scans multiple rows.
func scanTicks(rows chRows) ([]domain.Tick, error) {
	var ticks []domain.Tick

	for rows.Next() {
		var t domain.Tick
		err := rows.Scan(&t.Symbol, &t.ID, &t.Time, &t.Price, &t.Volume, &t.Bid, &t.Ask)
		if err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
