package postgres

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

// InsertBulk adds orders atomically. Fails entire batch on any duplicate.
func (s *OrderStore) InsertBulk(ctx context.Context, executionID string, orders []domain.OrderRecord) error {
	if executionID == "" {
		return storage.ErrInvalidInput
	}
	if len(orders) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO backtest_orders (
			execution_id, symbol, order_id, trade_id,
			side, order_type, state, price, exec_price, comment,
			id_sent, time_sent, id_processed, time_processed
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14
		)
	`

	for _, o := range orders {
		_, err := tx.Exec(ctx, query,
			executionID, o.Symbol, o.OrderID, o.TradeID,
			string(o.Side), string(o.Type), string(o.State), o.Price, o.ExecutionPrice, o.Comment,
			o.IDSent, o.TimeSent, o.IDProcessed, o.TimeProcessed,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert order in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByExecutionID retrieves orders ordered by (symbol, order_id) ASC.
func (s *OrderStore) GetByExecutionID(ctx context.Context, executionID string) ([]domain.OrderRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, order_id, trade_id,
		       side, order_type, state, price, exec_price, comment,
		       id_sent, time_sent, id_processed, time_processed
		FROM backtest_orders
		WHERE execution_id = $1
		ORDER BY symbol ASC, order_id ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.OrderRecord
	for rows.Next() {
		var o domain.OrderRecord
		var side, orderType, state string
		err := rows.Scan(
			&o.Symbol, &o.OrderID, &o.TradeID,
			&side, &orderType, &state, &o.Price, &o.ExecutionPrice, &o.Comment,
			&o.IDSent, &o.TimeSent, &o.IDProcessed, &o.TimeProcessed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Side = domain.Side(side)
		o.Type = domain.OrderType(orderType)
		o.State = domain.OrderState(state)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}
