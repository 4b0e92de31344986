package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// ErrNoTrades is returned when no closed trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Breakdown holds the distribution over all symbols and per symbol.
type Breakdown struct {
	Overall  Distribution
	BySymbol map[string]Distribution
	Symbols  []string // sorted keys of BySymbol
}

// Aggregator computes trade distributions of stored executions.
type Aggregator struct {
	trades storage.TradeStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(trades storage.TradeStore) *Aggregator {
	return &Aggregator{trades: trades}
}

// ComputeExecution loads the trades of an execution and computes its breakdown.
// Returns ErrNoTrades if the execution has no closed trade.
func (a *Aggregator) ComputeExecution(ctx context.Context, executionID string) (*Breakdown, error) {
	trades, err := a.trades.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return ComputeBreakdown(trades)
}

// ComputeBreakdown computes the overall distribution and one per symbol.
// Symbols without closed trades are left out of BySymbol.
func ComputeBreakdown(trades []domain.Trade) (*Breakdown, error) {
	overall, err := Compute(trades)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.Trade)
	for _, t := range trades {
		grouped[t.Symbol] = append(grouped[t.Symbol], t)
	}

	b := &Breakdown{
		Overall:  overall,
		BySymbol: make(map[string]Distribution, len(grouped)),
	}
	for symbol, group := range grouped {
		d, err := Compute(group)
		if errors.Is(err, ErrNoTrades) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", symbol, err)
		}
		b.BySymbol[symbol] = d
		b.Symbols = append(b.Symbols, symbol)
	}
	sort.Strings(b.Symbols)

	return b, nil
}
