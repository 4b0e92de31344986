package memory

import (
	"context"
	"errors"
	"testing"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

func TestOrderStore_InsertAndGetOrdered(t *testing.T) {
	store := NewOrderStore()
	ctx := context.Background()

	orders := []domain.OrderRecord{
		{OrderID: 2, Symbol: "BBB", Side: domain.SideBuy},
		{OrderID: 2, Symbol: "AAA", Side: domain.SideSell},
		{OrderID: 1, Symbol: "AAA", Side: domain.SideBuy},
	}
	if err := store.InsertBulk(ctx, "exec1", orders); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "exec2", orders[:1]); err != nil {
		t.Fatalf("InsertBulk other execution failed: %v", err)
	}

	got, err := store.GetByExecutionID(ctx, "exec1")
	if err != nil {
		t.Fatalf("GetByExecutionID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(got))
	}
	if got[0].Symbol != "AAA" || got[0].OrderID != 1 || got[1].OrderID != 2 || got[2].Symbol != "BBB" {
		t.Errorf("Unexpected order: %+v", got)
	}
}

func TestOrderStore_DuplicateKey(t *testing.T) {
	store := NewOrderStore()
	ctx := context.Background()

	orders := []domain.OrderRecord{{OrderID: 1, Symbol: "AAA"}}
	if err := store.InsertBulk(ctx, "exec1", orders); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "exec1", orders); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.InsertBulk(ctx, "", orders); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_InsertAndGetOrdered(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []domain.Trade{
		domain.NewTrade(3, domain.TradeSideLong),
		domain.NewTrade(1, domain.TradeSideShort),
	}
	trades[0].Symbol = "AAA"
	trades[1].Symbol = "AAA"
	trades[0].PnL = 1.5

	if err := store.InsertBulk(ctx, "exec1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByExecutionID(ctx, "exec1")
	if err != nil {
		t.Fatalf("GetByExecutionID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(got))
	}
	if got[0].TradeID != 1 || got[1].TradeID != 3 {
		t.Errorf("Unexpected order: %d, %d", got[0].TradeID, got[1].TradeID)
	}
	if got[1].PnL != 1.5 {
		t.Errorf("PnL mismatch: got %f", got[1].PnL)
	}

	dup := []domain.Trade{trades[1], trades[1]}
	if err := store.InsertBulk(ctx, "exec2", dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestSummaryStore_InsertAndGet(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	for _, sym := range []string{"BBB", "AAA"} {
		sum := domain.SymbolSummary{Symbol: sym, Summary: domain.Summary{TradesTotal: 4}}
		if err := store.Insert(ctx, "exec1", sum); err != nil {
			t.Fatalf("Insert %s failed: %v", sym, err)
		}
	}

	got, err := store.GetByExecutionID(ctx, "exec1")
	if err != nil {
		t.Fatalf("GetByExecutionID failed: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "AAA" || got[1].Symbol != "BBB" {
		t.Fatalf("Unexpected summaries: %+v", got)
	}
	if got[0].Summary.TradesTotal != 4 {
		t.Errorf("TradesTotal mismatch: got %d", got[0].Summary.TradesTotal)
	}

	err = store.Insert(ctx, "exec1", domain.SymbolSummary{Symbol: "AAA"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
