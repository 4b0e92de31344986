// Package statistics computes backtest performance online, in a single pass
// over ticks, order updates and closed trades.
package statistics

import (
	"math"

	"tick-backtest/internal/calendar"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
)

// TradingDaysPerYear annualizes daily Sharpe and Sortino ratios.
const TradingDaysPerYear = 252

// Accumulator holds the running statistics of one processor.
//
// Market value is expressed in units of entry notional: the sum of closed
// trade relative pnl plus the open position marked against its average price.
type Accumulator struct {
	mode domain.ExecutionMode
	s    domain.Summary

	positionPlanned int
	position        int
	positionValue   float64

	marketValue    float64
	marketValueMax float64
	drawDown       float64
	drawDownStart  float64
	drawDownEnd    float64
	isDrawDownMax  bool

	started      bool
	prevTickTime float64
	tradedDay    int64

	dayNTrades  int
	dayTradePnL float64
	days        []domain.DayPerformance
	candles     []domain.SeriesPoint

	// running sums over day closes
	sumV, sumVV, sumNV float64
	sumR, sumRR        float64
	tdv                float64
}

// New creates an accumulator marking positions according to mode.
func New(mode domain.ExecutionMode) *Accumulator {
	a := &Accumulator{mode: mode}
	a.Reset()
	return a
}

// Reset restores the initial state.
func (a *Accumulator) Reset() {
	nan := math.NaN()
	*a = Accumulator{
		mode:          a.mode,
		positionValue: 1,
		drawDownStart: nan,
		drawDownEnd:   nan,
		tradedDay:     -1,
	}
	a.s = domain.Summary{
		TestStart:         nan,
		TestEnd:           nan,
		MaxDrawDownStart:  nan,
		MaxDrawDownEnd:    nan,
		MaxDrawDownLength: nan,
		Sharpe:            nan,
		Sortino:           nan,
		RSquared:          nan,
	}
}

// UpdateOrder applies the events of one order update to the position.
func (a *Accumulator) UpdateOrder(o *order.Order, events []order.Event) {
	sign := 1
	if !o.IsBuy() {
		sign = -1
	}

	for _, ev := range events {
		switch ev {
		case order.EventSent:
			a.positionPlanned += sign
		case order.EventCancelled:
			a.positionPlanned -= sign
		case order.EventExecuted:
			a.applyFill(sign, o.ExecutionPrice())
			a.positionPlanned -= sign
			a.markTraded(o.TimeExecuted())
		}
	}
}

// applyFill averages the position price on increase and resets it when the
// position flips sign.
func (a *Accumulator) applyFill(sign int, price float64) {
	pos := float64(a.position)
	if sign > 0 {
		if a.position == -1 {
			a.positionValue = price
		}
		if a.position >= 0 {
			a.positionValue = (a.positionValue*pos + price) / (pos + 1)
		}
	} else {
		if a.position == 1 {
			a.positionValue = price
		}
		if a.position <= 0 {
			a.positionValue = (a.positionValue*pos - price) / (pos - 1)
		}
	}
	a.position += sign
}

func (a *Accumulator) markTraded(t float64) {
	day := calendar.DayIndex(t)
	if day != a.tradedDay {
		a.tradedDay = day
		a.s.DaysTraded++
	}
}

// UpdateTrade accounts a trade once it is closed.
func (a *Accumulator) UpdateTrade(tr domain.Trade) {
	if !tr.IsClosed() {
		return
	}

	s := &a.s
	s.TradesTotal++
	n := float64(s.TradesTotal)
	s.AvgPnL = (s.AvgPnL*(n-1) + tr.PnLRel) / n
	s.TotalPnL += tr.PnLRel

	if tr.PnLRel > 0 {
		s.TradesWin++
		w := float64(s.TradesWin)
		s.AvgWin = (s.AvgWin*(w-1) + tr.PnLRel) / w
		s.TotalWin += tr.PnLRel
	} else {
		s.TradesLoss++
		l := float64(s.TradesLoss)
		s.AvgLoss = (s.AvgLoss*(l-1) + tr.PnLRel) / l
		s.TotalLoss += tr.PnLRel
	}
	s.PctWin = float64(s.TradesWin) / n
	s.PctLoss = float64(s.TradesLoss) / n

	if tr.Side == domain.TradeSideLong {
		s.TradesLong++
	} else {
		s.TradesShort++
	}

	a.dayTradePnL += tr.PnLRel
	a.dayNTrades++
}

// UpdateTick marks the position to market and tracks drawdown. Crossing a
// calendar day closes the previous day first.
func (a *Accumulator) UpdateTick(tick domain.Tick) {
	if !a.started {
		a.started = true
		a.s.TestStart = tick.Time
	} else if calendar.NNights(a.prevTickTime, tick.Time) > 0 {
		a.closeDay()
	}

	if !tick.IsSynthetic {
		a.marketValue = a.s.TotalPnL
		if a.position != 0 {
			a.marketValue += float64(a.position) * (a.mark(tick)/a.positionValue - 1)
		}
	}

	if a.marketValue > a.marketValueMax {
		a.marketValueMax = a.marketValue
	}

	prev := a.drawDown
	a.drawDown = a.marketValue - a.marketValueMax

	if prev == 0 && a.drawDown < 0 {
		a.drawDownStart = tick.Time
		a.drawDownEnd = math.NaN()
	}

	ended := prev < 0 && a.drawDown == 0
	if ended {
		a.drawDownEnd = tick.Time
		if a.isDrawDownMax {
			a.s.MaxDrawDownEnd = a.drawDownEnd
			a.s.MaxDrawDownLength = float64(calendar.NNights(a.s.MaxDrawDownStart, a.s.MaxDrawDownEnd))
			a.isDrawDownMax = false
		}
	}

	if a.drawDown < a.s.MaxDrawDown {
		a.s.MaxDrawDown = a.drawDown
		a.s.MaxDrawDownStart = a.drawDownStart
		a.s.MaxDrawDownEnd = math.NaN()
		a.s.MaxDrawDownLength = math.NaN()
		a.isDrawDownMax = true
	}

	a.prevTickTime = tick.Time
	a.s.TestEnd = tick.Time
	if a.s.DaysTraded > 0 {
		a.s.TradesPerDay = float64(a.s.TradesTotal) / float64(a.s.DaysTraded)
	}
}

func (a *Accumulator) mark(tick domain.Tick) float64 {
	if a.mode != domain.ExecutionModeBBO || !tick.HasQuote() {
		return tick.Price
	}
	if a.position > 0 {
		return tick.Bid
	}
	return tick.Ask
}

// UpdateCandle samples market value and drawdown at a completed candle.
func (a *Accumulator) UpdateCandle(c domain.Candle) {
	p := domain.SeriesPoint{Time: c.Time}
	if !math.IsNaN(a.marketValue) {
		p.MarketValue = a.marketValue
		p.DrawDown = a.drawDown
	}
	a.candles = append(a.candles, p)
}

// closeDay appends the day ending at the previous tick to the daily history
// and refreshes Sharpe, Sortino and R-squared from the running sums.
func (a *Accumulator) closeDay() {
	change := a.marketValue
	if len(a.days) > 0 {
		change = a.marketValue - a.days[len(a.days)-1].PnL
	}

	avgTradePnL := 0.0
	if a.dayNTrades > 0 {
		avgTradePnL = a.dayTradePnL / float64(a.dayNTrades)
	}

	a.days = append(a.days, domain.DayPerformance{
		Date:        calendar.DayIndex(a.prevTickTime),
		Return:      change,
		PnL:         a.marketValue,
		DrawDown:    a.drawDown,
		AvgTradePnL: avgTradePnL,
		NTrades:     a.dayNTrades,
	})

	s := &a.s
	s.DaysTested = len(a.days)
	n := float64(s.DaysTested)
	v := a.marketValue

	a.sumV += v
	a.sumVV += v * v
	a.sumNV += v * n
	a.sumR += change
	a.sumRR += change * change

	// correlation of market value with the day index 1..n
	covNV := n*a.sumNV - a.sumV*n*(n+1)/2
	sdN := n * math.Sqrt((n*n-1)/12)
	sdV := math.Sqrt(n*a.sumVV - a.sumV*a.sumV)
	s.RSquared = math.NaN()
	if sdN > 0 && sdV > 0 {
		r := covNV / sdN / sdV
		s.RSquared = r * r
	}

	avgR := a.sumR / n
	s.Sharpe = math.NaN()
	if n > 1 {
		if varR := (n*a.sumRR - a.sumR*a.sumR) / n / (n - 1); varR > 0 {
			s.Sharpe = avgR / math.Sqrt(varR) * math.Sqrt(TradingDaysPerYear)
		}
	}

	downside := math.Min(change, 0)
	a.tdv = (a.tdv*(n-1) + downside*downside) / n
	s.Sortino = math.NaN()
	if a.tdv > 0 {
		s.Sortino = avgR / math.Sqrt(a.tdv) * math.Sqrt(TradingDaysPerYear)
	}

	s.AvgDrawDown = (s.AvgDrawDown*(n-1) + a.drawDown) / n

	a.dayNTrades = 0
	a.dayTradePnL = 0
}

// Finalize closes the last, possibly partial, day. It must be called once at
// the end of the feed.
func (a *Accumulator) Finalize() {
	if a.started {
		a.closeDay()
	}
}

// Summary returns the current summary.
func (a *Accumulator) Summary() domain.Summary { return a.s }

// Days returns the day-close performance history.
func (a *Accumulator) Days() []domain.DayPerformance {
	out := make([]domain.DayPerformance, len(a.days))
	copy(out, a.days)
	return out
}

// CandleSeries returns market value and drawdown sampled at every candle.
func (a *Accumulator) CandleSeries() []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, len(a.candles))
	copy(out, a.candles)
	return out
}

// MarketValue returns realized relative pnl plus the open position marked
// to the last tick.
func (a *Accumulator) MarketValue() float64 { return a.marketValue }

// MarketValueMax returns the running maximum of MarketValue.
func (a *Accumulator) MarketValueMax() float64 { return a.marketValueMax }

// DrawDown returns MarketValue minus its running maximum, never positive.
func (a *Accumulator) DrawDown() float64 { return a.drawDown }

// Position returns the executed signed position in units.
func (a *Accumulator) Position() int { return a.position }

// PositionPlanned returns the signed units of orders sent but not yet
// executed or cancelled.
func (a *Accumulator) PositionPlanned() int { return a.positionPlanned }

// PositionValue returns the average entry price of the open position.
func (a *Accumulator) PositionValue() float64 { return a.positionValue }
