package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tick-backtest/internal/metrics"
	"tick-backtest/internal/storage"
)

// Sources are the stores a Generator reads from.
// Candles and Series are optional.
type Sources struct {
	Runs      storage.RunStore
	Summaries storage.SummaryStore
	Orders    storage.OrderStore
	Trades    storage.TradeStore
	Days      storage.DayPerformanceStore
	Candles   storage.CandleStore
	Series    storage.EquitySeriesStore
}

// Generator produces reports from stored executions.
type Generator struct {
	src Sources
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(src Sources) *Generator {
	return &Generator{
		src: src,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads one execution and assembles its report.
// Returns storage.ErrNotFound if the execution does not exist.
func (g *Generator) Generate(ctx context.Context, executionID string) (*Report, error) {
	run, err := g.src.Runs.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	summaries, err := g.src.Summaries.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	orders, err := g.src.Orders.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	trades, err := g.src.Trades.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	sections := make(map[string]*SymbolSection, len(run.Symbols))
	section := func(symbol string) *SymbolSection {
		if s, ok := sections[symbol]; ok {
			return s
		}
		s := &SymbolSection{Symbol: symbol}
		sections[symbol] = s
		return s
	}
	for _, sym := range run.Symbols {
		section(sym)
	}
	for _, s := range summaries {
		sec := section(s.Symbol)
		sec.Summary = s.Summary
		sec.StopReason = s.StopReason
	}
	for _, o := range orders {
		sec := section(o.Symbol)
		sec.Orders = append(sec.Orders, o)
	}
	for _, t := range trades {
		sec := section(t.Symbol)
		sec.Trades = append(sec.Trades, t)
	}

	for sym, sec := range sections {
		if sec.Days, err = g.src.Days.Get(ctx, executionID, sym); err != nil {
			return nil, fmt.Errorf("load days %s: %w", sym, err)
		}
		if g.src.Candles != nil {
			if sec.Candles, err = g.src.Candles.Get(ctx, executionID, sym); err != nil {
				return nil, fmt.Errorf("load candles %s: %w", sym, err)
			}
		}
		if g.src.Series != nil {
			if sec.Series, err = g.src.Series.Get(ctx, executionID, sym); err != nil {
				return nil, fmt.Errorf("load series %s: %w", sym, err)
			}
		}
	}

	r := &Report{
		GeneratedAt: g.now(),
		Run:         *run,
		Symbols:     make([]SymbolSection, 0, len(sections)),
	}
	for _, sec := range sections {
		r.Symbols = append(r.Symbols, *sec)
	}
	sortSections(r.Symbols)

	dist, err := metrics.ComputeBreakdown(trades)
	switch {
	case errors.Is(err, metrics.ErrNoTrades):
	case err != nil:
		return nil, err
	default:
		r.Distribution = dist
	}

	return r, nil
}
