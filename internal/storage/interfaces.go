package storage

import (
	"context"

	"tick-backtest/internal/domain"
)

// TickStore provides access to market tick storage.
type TickStore interface {
	// InsertBulk adds multiple ticks atomically. Fails entire batch on duplicate (symbol, id).
	InsertBulk(ctx context.Context, ticks []domain.Tick) error

	// GetBySymbol retrieves all ticks for a symbol, ordered by (time, id) ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]domain.Tick, error)

	// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end float64) ([]domain.Tick, error)

	// Symbols lists stored symbols in ascending order.
	Symbols(ctx context.Context) ([]string, error)
}

// RunStore provides access to backtest run records.
type RunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByExecutionID retrieves a run. Returns ErrNotFound if not exists.
	GetByExecutionID(ctx context.Context, executionID string) (*domain.RunRecord, error)

	// GetByRunID retrieves all executions of a run, ordered by started_at ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.RunRecord, error)
}

// OrderStore provides access to the order ledger of executions.
type OrderStore interface {
	// InsertBulk adds orders atomically. Fails entire batch on duplicate (execution_id, symbol, order_id).
	InsertBulk(ctx context.Context, executionID string, orders []domain.OrderRecord) error

	// GetByExecutionID retrieves orders ordered by (symbol, order_id) ASC.
	GetByExecutionID(ctx context.Context, executionID string) ([]domain.OrderRecord, error)
}

// TradeStore provides access to trades of executions.
type TradeStore interface {
	// InsertBulk adds trades atomically. Fails entire batch on duplicate (execution_id, symbol, trade_id).
	InsertBulk(ctx context.Context, executionID string, trades []domain.Trade) error

	// GetByExecutionID retrieves trades ordered by (symbol, trade_id) ASC.
	GetByExecutionID(ctx context.Context, executionID string) ([]domain.Trade, error)
}

// SummaryStore provides access to per-symbol summaries of executions.
type SummaryStore interface {
	// Insert adds a summary. Returns ErrDuplicateKey if (execution_id, symbol) exists.
	Insert(ctx context.Context, executionID string, s domain.SymbolSummary) error

	// GetByExecutionID retrieves summaries ordered by symbol ASC.
	GetByExecutionID(ctx context.Context, executionID string) ([]domain.SymbolSummary, error)
}

// DayPerformanceStore provides access to day-close performance history.
type DayPerformanceStore interface {
	// InsertBulk adds rows atomically. Fails entire batch on duplicate (execution_id, symbol, date).
	InsertBulk(ctx context.Context, executionID, symbol string, days []domain.DayPerformance) error

	// Get retrieves rows for one symbol ordered by date ASC.
	Get(ctx context.Context, executionID, symbol string) ([]domain.DayPerformance, error)
}

// CandleStore provides access to candles emitted during executions.
type CandleStore interface {
	// InsertBulk adds candles atomically. Fails entire batch on duplicate (execution_id, symbol, time).
	InsertBulk(ctx context.Context, executionID, symbol string, candles []domain.Candle) error

	// Get retrieves candles for one symbol ordered by time ASC.
	Get(ctx context.Context, executionID, symbol string) ([]domain.Candle, error)
}

// EquitySeriesStore provides access to per-candle market value series.
type EquitySeriesStore interface {
	// InsertBulk adds points atomically. Fails entire batch on duplicate (execution_id, symbol, time).
	InsertBulk(ctx context.Context, executionID, symbol string, points []domain.SeriesPoint) error

	// Get retrieves points for one symbol ordered by time ASC.
	Get(ctx context.Context, executionID, symbol string) ([]domain.SeriesPoint, error)
}
