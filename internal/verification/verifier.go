// Package verification re-runs a stored execution over its tick data and
// checks that the replay reproduces the stored trades and summaries.
package verification

import (
	"fmt"
	"math"

	"tick-backtest/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Symbol   string
	TradeID  int    // 0 for summary fields
	Field    string // field name
	Expected any    // stored value
	Actual   any    // replayed value
}

func (d FieldDivergence) String() string {
	if d.TradeID == 0 {
		return fmt.Sprintf("%s summary %s: stored %v, replayed %v", d.Symbol, d.Field, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s trade %d %s: stored %v, replayed %v", d.Symbol, d.TradeID, d.Field, d.Expected, d.Actual)
}

// Report contains the result of verifying one execution.
type Report struct {
	ExecutionID    string
	RunID          string // stored
	ReplayedRunID  string
	TradesStored   int
	TradesReplayed int
	Divergences    []FieldDivergence
}

// Match reports whether the replay reproduced the execution.
func (r *Report) Match() bool {
	return r.RunID == r.ReplayedRunID && r.TradesStored == r.TradesReplayed && len(r.Divergences) == 0
}

type floatField struct {
	name             string
	stored, replayed float64
}

type intField struct {
	name             string
	stored, replayed int64
}

// CompareTrades compares two trades with the same (symbol, trade id) and
// returns divergences. Uses FloatTolerance for float64 comparisons.
func CompareTrades(stored, replayed domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{
			Symbol:   stored.Symbol,
			TradeID:  stored.TradeID,
			Field:    field,
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.Side != replayed.Side {
		add("Side", stored.Side, replayed.Side)
	}
	if stored.State != replayed.State {
		add("State", stored.State, replayed.State)
	}

	for _, f := range []intField{
		{"IDSent", stored.IDSent, replayed.IDSent},
		{"IDEnter", stored.IDEnter, replayed.IDEnter},
		{"IDExit", stored.IDExit, replayed.IDExit},
	} {
		if f.stored != f.replayed {
			add(f.name, f.stored, f.replayed)
		}
	}

	for _, f := range []floatField{
		{"TimeSent", stored.TimeSent, replayed.TimeSent},
		{"TimeEnter", stored.TimeEnter, replayed.TimeEnter},
		{"PriceEnter", stored.PriceEnter, replayed.PriceEnter},
		{"TimeExit", stored.TimeExit, replayed.TimeExit},
		{"PriceExit", stored.PriceExit, replayed.PriceExit},
		{"PnL", stored.PnL, replayed.PnL},
		{"PnLRel", stored.PnLRel, replayed.PnLRel},
		{"Cost", stored.Cost, replayed.Cost},
		{"CostRel", stored.CostRel, replayed.CostRel},
		{"MtmMin", stored.MtmMin, replayed.MtmMin},
		{"MtmMax", stored.MtmMax, replayed.MtmMax},
	} {
		if !floatEquals(f.stored, f.replayed) {
			add(f.name, f.stored, f.replayed)
		}
	}

	return divergences
}

// CompareSummaries compares the summaries of one symbol.
func CompareSummaries(symbol string, stored, replayed domain.Summary) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{
			Symbol:   symbol,
			Field:    field,
			Expected: expected,
			Actual:   actual,
		})
	}

	for _, f := range []intField{
		{"DaysTested", int64(stored.DaysTested), int64(replayed.DaysTested)},
		{"DaysTraded", int64(stored.DaysTraded), int64(replayed.DaysTraded)},
		{"TradesTotal", int64(stored.TradesTotal), int64(replayed.TradesTotal)},
		{"TradesWin", int64(stored.TradesWin), int64(replayed.TradesWin)},
		{"TradesLoss", int64(stored.TradesLoss), int64(replayed.TradesLoss)},
	} {
		if f.stored != f.replayed {
			add(f.name, f.stored, f.replayed)
		}
	}

	for _, f := range []floatField{
		{"TotalPnL", stored.TotalPnL, replayed.TotalPnL},
		{"AvgPnL", stored.AvgPnL, replayed.AvgPnL},
		{"MaxDrawDown", stored.MaxDrawDown, replayed.MaxDrawDown},
		{"Sharpe", stored.Sharpe, replayed.Sharpe},
		{"Sortino", stored.Sortino, replayed.Sortino},
		{"RSquared", stored.RSquared, replayed.RSquared},
	} {
		if !floatEquals(f.stored, f.replayed) {
			add(f.name, f.stored, f.replayed)
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN and infinities equal themselves.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}
