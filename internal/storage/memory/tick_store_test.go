package memory

import (
	"context"
	"errors"
	"testing"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

func TestTickStore_InsertAndGetOrdered(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	ticks := []domain.Tick{
		{ID: 3, Time: 30, Price: 12, Symbol: "AAA"},
		{ID: 1, Time: 10, Price: 10, Symbol: "AAA"},
		{ID: 2, Time: 10, Price: 11, Symbol: "AAA"},
		{ID: 1, Time: 5, Price: 50, Symbol: "BBB"},
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySymbol(ctx, "AAA")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 ticks, got %d", len(got))
	}
	for i, wantID := range []int64{1, 2, 3} {
		if got[i].ID != wantID {
			t.Errorf("Tick %d: expected id %d, got %d", i, wantID, got[i].ID)
		}
	}
}

func TestTickStore_GetByTimeRangeInclusive(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	var ticks []domain.Tick
	for i := int64(1); i <= 5; i++ {
		ticks = append(ticks, domain.Tick{ID: i, Time: float64(i * 10), Price: 1, Symbol: "AAA"})
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "AAA", 20, 40)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 ticks, got %d", len(got))
	}
	if got[0].Time != 20 || got[2].Time != 40 {
		t.Errorf("Unexpected range bounds: %v..%v", got[0].Time, got[2].Time)
	}
}

func TestTickStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []domain.Tick{{ID: 1, Time: 1, Symbol: "AAA"}}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, []domain.Tick{
		{ID: 2, Time: 2, Symbol: "AAA"},
		{ID: 1, Time: 1, Symbol: "AAA"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetBySymbol(ctx, "AAA")
	if len(got) != 1 {
		t.Errorf("Batch must not be partially applied, got %d ticks", len(got))
	}

	err = store.InsertBulk(ctx, []domain.Tick{
		{ID: 7, Time: 7, Symbol: "AAA"},
		{ID: 7, Time: 7, Symbol: "AAA"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestTickStore_RejectsInvalidTicks(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []domain.Tick{{ID: 1, Time: 1}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing symbol, got %v", err)
	}

	synthetic := domain.NewSyntheticTick(1, 1)
	synthetic.Symbol = "AAA"
	if err := store.InsertBulk(ctx, []domain.Tick{synthetic}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for synthetic tick, got %v", err)
	}
}

func TestTickStore_Symbols(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []domain.Tick{
		{ID: 1, Time: 1, Symbol: "ZZZ"},
		{ID: 1, Time: 1, Symbol: "AAA"},
		{ID: 2, Time: 2, Symbol: "ZZZ"},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	symbols, err := store.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAA" || symbols[1] != "ZZZ" {
		t.Errorf("Unexpected symbols: %v", symbols)
	}
}
