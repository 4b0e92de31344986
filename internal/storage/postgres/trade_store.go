package postgres

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, executionID string, trades []domain.Trade) error {
	if executionID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO backtest_trades (
			execution_id, symbol, trade_id, side, state,
			id_sent, time_sent,
			id_enter, time_enter, price_enter,
			id_exit, time_exit, price_exit,
			pnl, pnl_rel, cost, cost_rel,
			mtm_min, mtm_max, mtm_min_rel, mtm_max_rel
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21
		)
	`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			executionID, t.Symbol, t.TradeID, string(t.Side), string(t.State),
			t.IDSent, t.TimeSent,
			t.IDEnter, t.TimeEnter, t.PriceEnter,
			t.IDExit, t.TimeExit, t.PriceExit,
			t.PnL, t.PnLRel, t.Cost, t.CostRel,
			t.MtmMin, t.MtmMax, t.MtmMinRel, t.MtmMaxRel,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByExecutionID retrieves trades ordered by (symbol, trade_id) ASC.
func (s *TradeStore) GetByExecutionID(ctx context.Context, executionID string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, trade_id, side, state,
		       id_sent, time_sent,
		       id_enter, time_enter, price_enter,
		       id_exit, time_exit, price_exit,
		       pnl, pnl_rel, cost, cost_rel,
		       mtm_min, mtm_max, mtm_min_rel, mtm_max_rel
		FROM backtest_trades
		WHERE execution_id = $1
		ORDER BY symbol ASC, trade_id ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, state string
		err := rows.Scan(
			&t.Symbol, &t.TradeID, &side, &state,
			&t.IDSent, &t.TimeSent,
			&t.IDEnter, &t.TimeEnter, &t.PriceEnter,
			&t.IDExit, &t.TimeExit, &t.PriceExit,
			&t.PnL, &t.PnLRel, &t.Cost, &t.CostRel,
			&t.MtmMin, &t.MtmMax, &t.MtmMinRel, &t.MtmMaxRel,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Side = domain.TradeSide(side)
		t.State = domain.TradeState(state)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
