package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

func insertTestRun(t *testing.T, ctx context.Context, pool *Pool, executionID string) {
	t.Helper()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := NewRunStore(pool).Insert(ctx, &domain.RunRecord{
		ExecutionID: executionID,
		RunID:       "run-" + executionID,
		Strategy:    "sma_crossover",
		Symbols:     []string{"AAA", "BBB"},
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		TicksFed:    100,
		Config:      []byte(`{"bar_size": 60}`),
	})
	require.NoError(t, err)
}

func TestRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)
	insertTestRun(t, ctx, pool, "exec1")

	got, err := store.GetByExecutionID(ctx, "exec1")
	require.NoError(t, err)
	assert.Equal(t, "run-exec1", got.RunID)
	assert.Equal(t, []string{"AAA", "BBB"}, got.Symbols)
	assert.Equal(t, int64(100), got.TicksFed)
	assert.JSONEq(t, `{"bar_size": 60}`, string(got.Config))
	assert.True(t, got.FinishedAt.After(got.StartedAt))

	runs, err := store.GetByRunID(ctx, "run-exec1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = store.GetByExecutionID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Insert(ctx, &domain.RunRecord{ExecutionID: "exec1", RunID: "other"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOrderStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestRun(t, ctx, pool, "exec1")
	store := NewOrderStore(pool)

	orders := []domain.OrderRecord{
		{
			OrderID: 2, TradeID: 1, Symbol: "AAA", Side: domain.SideSell, Type: domain.OrderTypeLimit,
			State: domain.OrderStateCancelled, Price: 105, ExecutionPrice: math.NaN(), Comment: "exit",
			IDSent: 5, TimeSent: 50, IDProcessed: 9, TimeProcessed: 90,
		},
		{
			OrderID: 1, TradeID: 1, Symbol: "AAA", Side: domain.SideBuy, Type: domain.OrderTypeMarket,
			State: domain.OrderStateExecuted, Price: math.NaN(), ExecutionPrice: 100,
			IDSent: 1, TimeSent: 10, IDProcessed: 2, TimeProcessed: 20,
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "exec1", orders))

	got, err := store.GetByExecutionID(ctx, "exec1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].OrderID)
	assert.Equal(t, domain.OrderTypeMarket, got[0].Type)
	assert.True(t, math.IsNaN(got[0].Price))
	assert.Equal(t, 100.0, got[0].ExecutionPrice)
	assert.Equal(t, "exit", got[1].Comment)
	assert.Equal(t, domain.OrderStateCancelled, got[1].State)

	// Whole batch fails on a duplicate
	err = store.InsertBulk(ctx, "exec1", []domain.OrderRecord{
		{OrderID: 3, Symbol: "AAA", Side: domain.SideBuy, Type: domain.OrderTypeMarket, State: domain.OrderStateNew},
		orders[0],
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err = store.GetByExecutionID(ctx, "exec1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestRun(t, ctx, pool, "exec1")
	store := NewTradeStore(pool)

	closed := domain.NewTrade(1, domain.TradeSideLong)
	closed.Symbol = "AAA"
	closed.State = domain.TradeStateClosed
	closed.PriceEnter = 100
	closed.PriceExit = 110
	closed.PnL = 9.5
	closed.PnLRel = 0.095
	closed.Cost = -0.5

	open := domain.NewTrade(2, domain.TradeSideShort)
	open.Symbol = "AAA"
	open.State = domain.TradeStateOpened
	open.PriceEnter = 110

	require.NoError(t, store.InsertBulk(ctx, "exec1", []domain.Trade{open, closed}))

	got, err := store.GetByExecutionID(ctx, "exec1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].TradeID)
	assert.Equal(t, domain.TradeStateClosed, got[0].State)
	assert.InDelta(t, 9.5, got[0].PnL, 1e-12)
	assert.InDelta(t, -0.5, got[0].Cost, 1e-12)
	assert.Equal(t, domain.TradeSideShort, got[1].Side)
	assert.True(t, math.IsNaN(got[1].PnL))

	err = store.InsertBulk(ctx, "exec1", []domain.Trade{closed})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSummaryStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestRun(t, ctx, pool, "exec1")
	store := NewSummaryStore(pool)

	sum := domain.SymbolSummary{
		Symbol:     "AAA",
		StopReason: "drawdown limit reached",
		Summary: domain.Summary{
			TradesTotal:    10,
			TradesWin:      6,
			TradesLoss:     4,
			PctWin:         0.6,
			TotalPnL:       0.12,
			MaxDrawDown:    -0.05,
			MaxDrawDownEnd: math.NaN(),
			Sharpe:         math.NaN(),
		},
	}
	require.NoError(t, store.Insert(ctx, "exec1", sum))

	got, err := store.GetByExecutionID(ctx, "exec1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "drawdown limit reached", got[0].StopReason)
	assert.Equal(t, 10, got[0].Summary.TradesTotal)
	assert.InDelta(t, 0.6, got[0].Summary.PctWin, 1e-12)
	assert.True(t, math.IsNaN(got[0].Summary.MaxDrawDownEnd))

	assert.ErrorIs(t, store.Insert(ctx, "exec1", sum), storage.ErrDuplicateKey)
}

func TestDayPerformanceStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	insertTestRun(t, ctx, pool, "exec1")
	store := NewDayPerformanceStore(pool)

	days := []domain.DayPerformance{
		{Date: 19783, Return: 0.01, PnL: 1.02, DrawDown: 0, AvgTradePnL: 0.005, NTrades: 2},
		{Date: 19782, Return: 0.01, PnL: 1.01, DrawDown: 0, AvgTradePnL: 0.01, NTrades: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, "exec1", "AAA", days))

	got, err := store.Get(ctx, "exec1", "AAA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(19782), got[0].Date)
	assert.Equal(t, 2, got[1].NTrades)

	err = store.InsertBulk(ctx, "exec1", "AAA", days[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestIngestProgressStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewIngestProgressStore(pool)

	_, err := store.GetProgress(ctx, "AAA")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetProgress(ctx, &storage.IngestProgress{Symbol: "AAA", LastID: 10, Time: 100}))
	require.NoError(t, store.SetProgress(ctx, &storage.IngestProgress{Symbol: "AAA", LastID: 25, Time: 250}))

	got, err := store.GetProgress(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.LastID)
	assert.Equal(t, 250.0, got.Time)
}
