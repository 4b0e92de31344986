package metrics

import (
	"math"
	"sort"

	"tick-backtest/internal/domain"
)

// Distribution describes the spread of relative outcomes of closed trades.
type Distribution struct {
	Trades int
	Wins   int
	Losses int

	WinRate       float64
	SymbolWinRate float64 // share of symbols with positive mean outcome
	Symbols       int

	Mean   float64
	Stddev float64
	Min    float64
	P10    float64
	P25    float64
	Median float64
	P75    float64
	P90    float64
	Max    float64

	ProfitFactor float64 // +Inf when there are no losses
	Expectancy   float64 // mean absolute PnL per trade

	MaxDrawdown          float64 // on cumulative relative outcome, non-negative
	MaxConsecutiveLosses int
}

// Compute builds a Distribution from trades. Trades that are not closed are ignored.
// Returns ErrNoTrades when no closed trade remains.
func Compute(trades []domain.Trade) (Distribution, error) {
	closed := closedInExitOrder(trades)
	if len(closed) == 0 {
		return Distribution{}, ErrNoTrades
	}
	return computeFromTrades(closed), nil
}

// closedInExitOrder filters closed trades and orders them by (TimeExit, Symbol, TradeID).
func closedInExitOrder(trades []domain.Trade) []domain.Trade {
	closed := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.State == domain.TradeStateClosed {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		a, b := closed[i], closed[j]
		if a.TimeExit != b.TimeExit {
			return a.TimeExit < b.TimeExit
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.TradeID < b.TradeID
	})
	return closed
}

// computeFromTrades computes all metrics from closed trades in exit order.
func computeFromTrades(trades []domain.Trade) Distribution {
	n := len(trades)
	outcomes := make([]float64, n)
	absolute := make([]float64, n)
	for i, t := range trades {
		outcomes[i] = t.PnLRel
		absolute[i] = t.PnL
	}

	d := Distribution{Trades: n}
	d.Wins, d.Losses, d.WinRate = computeWinRate(outcomes)
	d.Symbols, d.SymbolWinRate = computeSymbolWinRate(trades)

	d.Mean = computeMean(outcomes)
	d.Stddev = computeStddev(outcomes, d.Mean)

	sorted := make([]float64, n)
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	d.Min = sorted[0]
	d.Max = sorted[n-1]
	d.P10 = computePercentile(sorted, 0.10)
	d.P25 = computePercentile(sorted, 0.25)
	d.Median = computePercentile(sorted, 0.50)
	d.P75 = computePercentile(sorted, 0.75)
	d.P90 = computePercentile(sorted, 0.90)

	d.ProfitFactor = computeProfitFactor(outcomes)
	d.Expectancy = computeMean(absolute)

	d.MaxDrawdown = computeMaxDrawdown(outcomes)
	d.MaxConsecutiveLosses = computeMaxConsecutiveLosses(outcomes)

	return d
}

// computeWinRate counts outcomes > 0 as wins and the rest as losses.
func computeWinRate(outcomes []float64) (wins, losses int, rate float64) {
	for _, o := range outcomes {
		if o > 0 {
			wins++
		} else {
			losses++
		}
	}
	if len(outcomes) == 0 {
		return 0, 0, 0
	}
	return wins, losses, float64(wins) / float64(len(outcomes))
}

// computeSymbolWinRate returns the number of symbols and the share of them
// whose mean relative outcome is > 0.
func computeSymbolWinRate(trades []domain.Trade) (int, float64) {
	bySymbol := make(map[string][]float64)
	for _, t := range trades {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t.PnLRel)
	}
	if len(bySymbol) == 0 {
		return 0, 0
	}

	winning := 0
	for _, outcomes := range bySymbol {
		if computeMean(outcomes) > 0 {
			winning++
		}
	}
	return len(bySymbol), float64(winning) / float64(len(bySymbol))
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev computes sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile computes a percentile using linear interpolation.
// sorted must be sorted ascending.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeProfitFactor is gross win divided by absolute gross loss.
func computeProfitFactor(outcomes []float64) float64 {
	gain, loss := 0.0, 0.0
	for _, o := range outcomes {
		if o > 0 {
			gain += o
		} else {
			loss -= o
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return gain / loss
}

// computeMaxDrawdown computes the largest peak-to-trough decline of the
// cumulative outcome. The curve starts at 0.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative, peak, maxDD := 0.0, 0.0, 0.0
	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// computeMaxConsecutiveLosses finds the longest run of outcomes <= 0.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak, current := 0, 0
	for _, o := range outcomes {
		if o <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
