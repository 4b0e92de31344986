// Package wiring opens the storage backend selected by configuration and
// hands its stores to the commands.
package wiring

import (
	"context"
	"fmt"

	"tick-backtest/internal/backtest"
	"tick-backtest/internal/config"
	"tick-backtest/internal/reporting"
	"tick-backtest/internal/storage"
	chstore "tick-backtest/internal/storage/clickhouse"
	"tick-backtest/internal/storage/memory"
	"tick-backtest/internal/storage/migrations"
	pgstore "tick-backtest/internal/storage/postgres"
)

// Stores holds every store of one backend.
type Stores struct {
	Ticks     storage.TickStore
	Progress  storage.IngestProgressStore
	Runs      storage.RunStore
	Orders    storage.OrderStore
	Trades    storage.TradeStore
	Summaries storage.SummaryStore
	Days      storage.DayPerformanceStore
	Candles   storage.CandleStore
	Series    storage.EquitySeriesStore
}

// Open creates the stores of cfg.Backend. Postgres holds run metadata and
// ledgers; ClickHouse holds ticks, candles and equity series. Migrations run
// before the stores are returned. The cleanup func closes connections.
func Open(ctx context.Context, cfg config.StorageConfig) (*Stores, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return Memory(), func() {}, nil
	case config.BackendPostgres:
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &Stores{
		// PostgreSQL stores
		Progress:  pgstore.NewIngestProgressStore(pool),
		Runs:      pgstore.NewRunStore(pool),
		Orders:    pgstore.NewOrderStore(pool),
		Trades:    pgstore.NewTradeStore(pool),
		Summaries: pgstore.NewSummaryStore(pool),
		Days:      pgstore.NewDayPerformanceStore(pool),

		// ClickHouse stores
		Ticks:   chstore.NewTickStore(chConn),
		Candles: chstore.NewCandleStore(chConn),
		Series:  chstore.NewEquitySeriesStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// Memory returns fresh in-memory stores.
func Memory() *Stores {
	return &Stores{
		Ticks:     memory.NewTickStore(),
		Progress:  memory.NewIngestProgressStore(),
		Runs:      memory.NewRunStore(),
		Orders:    memory.NewOrderStore(),
		Trades:    memory.NewTradeStore(),
		Summaries: memory.NewSummaryStore(),
		Days:      memory.NewDayPerformanceStore(),
		Candles:   memory.NewCandleStore(),
		Series:    memory.NewEquitySeriesStore(),
	}
}

// Backtest returns the stores a backtest runner writes to.
func (s *Stores) Backtest() *backtest.Stores {
	return &backtest.Stores{
		Runs:      s.Runs,
		Orders:    s.Orders,
		Trades:    s.Trades,
		Summaries: s.Summaries,
		Days:      s.Days,
		Candles:   s.Candles,
		Series:    s.Series,
	}
}

// Report returns the sources a report generator reads from.
func (s *Stores) Report() reporting.Sources {
	return reporting.Sources{
		Runs:      s.Runs,
		Summaries: s.Summaries,
		Orders:    s.Orders,
		Trades:    s.Trades,
		Days:      s.Days,
		Candles:   s.Candles,
		Series:    s.Series,
	}
}
