package clickhouse

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// EquitySeriesStore implements storage.EquitySeriesStore using ClickHouse.
type EquitySeriesStore struct {
	conn *Conn
}

// NewEquitySeriesStore creates a new EquitySeriesStore.
func NewEquitySeriesStore(conn *Conn) *EquitySeriesStore {
	return &EquitySeriesStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.CandleStore       = (*CandleStore)(nil)
	_ storage.EquitySeriesStore = (*EquitySeriesStore)(nil)
)

// InsertBulk adds candles. Fails entire batch on duplicate (execution_id, symbol, time).
func (s *CandleStore) InsertBulk(ctx context.Context, executionID, symbol string, candles []domain.Candle) error {
	if executionID == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	times := make([]float64, len(candles))
	for i, c := range candles {
		times[i] = c.Time
	}
	if err := checkSeriesKeys(ctx, s.conn, "candles", executionID, symbol, times); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			execution_id, symbol, candle_id, time,
			open, high, low, close, volume, is_empty
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		var empty uint8
		if c.IsEmpty {
			empty = 1
		}
		err = batch.Append(
			executionID, symbol, c.ID, c.Time,
			c.Open, c.High, c.Low, c.Close, c.Volume, empty,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Get retrieves candles for one symbol ordered by time ASC.
func (s *CandleStore) Get(ctx context.Context, executionID, symbol string) ([]domain.Candle, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT candle_id, time, open, high, low, close, volume, is_empty
		FROM candles
		WHERE execution_id = ? AND symbol = ?
		ORDER BY time ASC
	`, executionID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var empty uint8
		if err := rows.Scan(&c.ID, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &empty); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		c.IsEmpty = empty == 1
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}

// InsertBulk adds points. Fails entire batch on duplicate (execution_id, symbol, time).
func (s *EquitySeriesStore) InsertBulk(ctx context.Context, executionID, symbol string, points []domain.SeriesPoint) error {
	if executionID == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	times := make([]float64, len(points))
	for i, p := range points {
		times[i] = p.Time
	}
	if err := checkSeriesKeys(ctx, s.conn, "equity_series", executionID, symbol, times); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_series (execution_id, symbol, time, market_value, drawdown)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(executionID, symbol, p.Time, p.MarketValue, p.DrawDown); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Get retrieves points for one symbol ordered by time ASC.
func (s *EquitySeriesStore) Get(ctx context.Context, executionID, symbol string) ([]domain.SeriesPoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT time, market_value, drawdown
		FROM equity_series
		WHERE execution_id = ? AND symbol = ?
		ORDER BY time ASC
	`, executionID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query equity series: %w", err)
	}
	defer rows.Close()

	var points []domain.SeriesPoint
	for rows.Next() {
		var p domain.SeriesPoint
		if err := rows.Scan(&p.Time, &p.MarketValue, &p.DrawDown); err != nil {
			return nil, fmt.Errorf("scan equity series row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity series rows: %w", err)
	}
	return points, nil
}

// checkSeriesKeys rejects intra-batch duplicate times and times already stored
// for (execution_id, symbol). MergeTree does not enforce uniqueness.
func checkSeriesKeys(ctx context.Context, conn *Conn, table, executionID, symbol string, times []float64) error {
	seen := make(map[float64]struct{}, len(times))
	for _, t := range times {
		if _, exists := seen[t]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t] = struct{}{}
	}

	query := fmt.Sprintf(`
		SELECT count(*) FROM %s
		WHERE execution_id = ? AND symbol = ? AND has(?, time)
	`, table)

	var count uint64
	if err := conn.QueryRow(ctx, query, executionID, symbol, times).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}
