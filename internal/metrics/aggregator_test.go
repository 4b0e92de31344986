package metrics

import (
	"context"
	"errors"
	"math"
	"testing"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage/memory"
)

func TestAggregator_ComputeExecution(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTradeStore()

	trades := []domain.Trade{
		closedTrade("AAA", 1, 10, 0.10),
		closedTrade("AAA", 2, 20, -0.05),
		closedTrade("BBB", 1, 15, 0.02),
		{TradeID: 3, Symbol: "CCC", State: domain.TradeStateOpened, PnL: math.NaN(), PnLRel: math.NaN()},
	}
	if err := store.InsertBulk(ctx, "exec-1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "exec-2", []domain.Trade{closedTrade("AAA", 1, 5, -0.50)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	b, err := NewAggregator(store).ComputeExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("ComputeExecution failed: %v", err)
	}

	if b.Overall.Trades != 3 {
		t.Errorf("expected 3 closed trades, got %d", b.Overall.Trades)
	}
	if len(b.Symbols) != 2 || b.Symbols[0] != "AAA" || b.Symbols[1] != "BBB" {
		t.Errorf("expected symbols [AAA BBB], got %v", b.Symbols)
	}
	if _, ok := b.BySymbol["CCC"]; ok {
		t.Error("symbol without closed trades must be omitted")
	}
	if got := b.BySymbol["AAA"].Trades; got != 2 {
		t.Errorf("expected 2 AAA trades, got %d", got)
	}

	// Exit order: 0.10 (t=10), 0.02 (t=15), -0.05 (t=20)
	if math.Abs(b.Overall.MaxDrawdown-0.05) > 1e-9 {
		t.Errorf("expected MaxDrawdown 0.05, got %f", b.Overall.MaxDrawdown)
	}
}

func TestAggregator_NoTrades(t *testing.T) {
	store := memory.NewTradeStore()
	_, err := NewAggregator(store).ComputeExecution(context.Background(), "missing")
	if !errors.Is(err, ErrNoTrades) {
		t.Fatalf("expected ErrNoTrades, got %v", err)
	}
}
