package postgres

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if (execution_id, symbol) exists.
func (s *SummaryStore) Insert(ctx context.Context, executionID string, ss domain.SymbolSummary) error {
	if executionID == "" || ss.Symbol == "" {
		return storage.ErrInvalidInput
	}

	m := ss.Summary
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backtest_summaries (
			execution_id, symbol, stop_reason,
			test_start, test_end, days_tested, days_traded,
			trades_per_day, trades_total, trades_long, trades_short, trades_win, trades_loss,
			pct_win, pct_loss, avg_win, avg_loss, avg_pnl, total_win, total_loss, total_pnl,
			max_dd, max_dd_start, max_dd_end, max_dd_length, avg_dd,
			sharpe, sortino, r_squared
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26,
			$27, $28, $29
		)
	`,
		executionID, ss.Symbol, ss.StopReason,
		m.TestStart, m.TestEnd, m.DaysTested, m.DaysTraded,
		m.TradesPerDay, m.TradesTotal, m.TradesLong, m.TradesShort, m.TradesWin, m.TradesLoss,
		m.PctWin, m.PctLoss, m.AvgWin, m.AvgLoss, m.AvgPnL, m.TotalWin, m.TotalLoss, m.TotalPnL,
		m.MaxDrawDown, m.MaxDrawDownStart, m.MaxDrawDownEnd, m.MaxDrawDownLength, m.AvgDrawDown,
		m.Sharpe, m.Sortino, m.RSquared,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// GetByExecutionID retrieves summaries ordered by symbol ASC.
func (s *SummaryStore) GetByExecutionID(ctx context.Context, executionID string) ([]domain.SymbolSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, stop_reason,
		       test_start, test_end, days_tested, days_traded,
		       trades_per_day, trades_total, trades_long, trades_short, trades_win, trades_loss,
		       pct_win, pct_loss, avg_win, avg_loss, avg_pnl, total_win, total_loss, total_pnl,
		       max_dd, max_dd_start, max_dd_end, max_dd_length, avg_dd,
		       sharpe, sortino, r_squared
		FROM backtest_summaries
		WHERE execution_id = $1
		ORDER BY symbol ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var result []domain.SymbolSummary
	for rows.Next() {
		var ss domain.SymbolSummary
		m := &ss.Summary
		err := rows.Scan(
			&ss.Symbol, &ss.StopReason,
			&m.TestStart, &m.TestEnd, &m.DaysTested, &m.DaysTraded,
			&m.TradesPerDay, &m.TradesTotal, &m.TradesLong, &m.TradesShort, &m.TradesWin, &m.TradesLoss,
			&m.PctWin, &m.PctLoss, &m.AvgWin, &m.AvgLoss, &m.AvgPnL, &m.TotalWin, &m.TotalLoss, &m.TotalPnL,
			&m.MaxDrawDown, &m.MaxDrawDownStart, &m.MaxDrawDownEnd, &m.MaxDrawDownLength, &m.AvgDrawDown,
			&m.Sharpe, &m.Sortino, &m.RSquared,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		result = append(result, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return result, nil
}
