package reporting

import (
	"errors"
	"sort"
	"time"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/metrics"
)

// Report is the rendered view of one backtest execution.
type Report struct {
	GeneratedAt time.Time
	Run         domain.RunRecord

	// Per-symbol sections sorted by symbol
	Symbols []SymbolSection

	// Distribution of closed-trade outcomes. Nil when no trade closed.
	Distribution *metrics.Breakdown
}

// SymbolSection holds the results of one symbol.
type SymbolSection struct {
	Symbol     string
	StopReason string
	Summary    domain.Summary

	Candles []domain.Candle
	Orders  []domain.OrderRecord
	Trades  []domain.Trade
	Days    []domain.DayPerformance
	Series  []domain.SeriesPoint
}

// TotalTrades sums summary trade counts over all symbols.
func (r *Report) TotalTrades() int {
	total := 0
	for _, s := range r.Symbols {
		total += s.Summary.TradesTotal
	}
	return total
}

// TotalPnL sums summary PnL over all symbols.
func (r *Report) TotalPnL() float64 {
	total := 0.0
	for _, s := range r.Symbols {
		total += s.Summary.TotalPnL
	}
	return total
}

// Build assembles a report from in-memory processor results.
func Build(run domain.RunRecord, results []domain.Result, now time.Time) (*Report, error) {
	r := &Report{
		GeneratedAt: now,
		Run:         run,
		Symbols:     make([]SymbolSection, 0, len(results)),
	}

	var trades []domain.Trade
	for _, res := range results {
		r.Symbols = append(r.Symbols, SymbolSection{
			Symbol:     res.Symbol,
			StopReason: res.StopReason,
			Summary:    res.Summary,
			Candles:    res.Candles,
			Orders:     res.Orders,
			Trades:     res.Trades,
			Days:       res.Days,
			Series:     res.CandleSeries,
		})
		trades = append(trades, res.Trades...)
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

func sortSections(sections []SymbolSection) {
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Symbol < sections[j].Symbol
	})
}
