package postgres

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// DayPerformanceStore implements storage.DayPerformanceStore using PostgreSQL.
type DayPerformanceStore struct {
	pool *Pool
}

// NewDayPerformanceStore creates a new DayPerformanceStore.
func NewDayPerformanceStore(pool *Pool) *DayPerformanceStore {
	return &DayPerformanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DayPerformanceStore = (*DayPerformanceStore)(nil)

// InsertBulk adds rows atomically. Fails entire batch on any duplicate.
func (s *DayPerformanceStore) InsertBulk(ctx context.Context, executionID, symbol string, days []domain.DayPerformance) error {
	if executionID == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(days) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO backtest_day_performance (
			execution_id, symbol, day,
			day_return, pnl, drawdown, avg_trade_pnl, n_trades
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, d := range days {
		_, err := tx.Exec(ctx, query,
			executionID, symbol, d.Date,
			d.Return, d.PnL, d.DrawDown, d.AvgTradePnL, d.NTrades,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert day performance in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Get retrieves rows for one symbol ordered by date ASC.
func (s *DayPerformanceStore) Get(ctx context.Context, executionID, symbol string) ([]domain.DayPerformance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT day, day_return, pnl, drawdown, avg_trade_pnl, n_trades
		FROM backtest_day_performance
		WHERE execution_id = $1 AND symbol = $2
		ORDER BY day ASC
	`, executionID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query day performance: %w", err)
	}
	defer rows.Close()

	var days []domain.DayPerformance
	for rows.Next() {
		var d domain.DayPerformance
		if err := rows.Scan(&d.Date, &d.Return, &d.PnL, &d.DrawDown, &d.AvgTradePnL, &d.NTrades); err != nil {
			return nil, fmt.Errorf("scan day performance row: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day performance rows: %w", err)
	}
	return days, nil
}
