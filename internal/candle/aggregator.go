// Package candle folds ticks into fixed-length OHLCV bars.
package candle

import (
	"errors"
	"fmt"
	"math"

	"tick-backtest/internal/domain"
)

// ErrInvalidBarSize is returned when the bar size is not positive.
var ErrInvalidBarSize = errors.New("bar size must be greater than 0")

// Aggregator builds candles from a time-ordered tick stream.
// Completed candles are kept in history in emission order.
type Aggregator struct {
	barSize float64
	current domain.Candle
	started bool
	history []domain.Candle
}

// NewAggregator creates an aggregator for bars of barSize seconds.
func NewAggregator(barSize float64) (*Aggregator, error) {
	if !(barSize > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBarSize, barSize)
	}
	return &Aggregator{barSize: barSize}, nil
}

// BarSize returns the bar length in seconds.
func (a *Aggregator) BarSize() float64 {
	return a.barSize
}

// Boundary returns the close boundary of the bar containing t.
func (a *Aggregator) Boundary(t float64) float64 {
	return math.Floor(t/a.barSize)*a.barSize + a.barSize
}

// IsFormed reports whether tick closes the in-progress candle.
func (a *Aggregator) IsFormed(tick domain.Tick) bool {
	return a.started && a.current.Time != a.Boundary(tick.Time)
}

// Add folds tick into the in-progress candle. When tick belongs to a later
// bar, the previous candle is appended to history and returned with ok set,
// and a new candle is seeded from tick.
func (a *Aggregator) Add(tick domain.Tick) (completed domain.Candle, ok bool) {
	if a.IsFormed(tick) {
		completed, ok = a.current, true
		a.history = append(a.history, completed)
	}

	if ok || !a.started {
		a.seed(tick)
		return completed, ok
	}

	a.current.ID = tick.ID
	if tick.IsSynthetic {
		return completed, ok
	}

	if a.current.IsEmpty {
		a.fill(tick)
		return completed, ok
	}

	a.current.Close = tick.Price
	a.current.Volume += tick.Volume
	if tick.Price > a.current.High {
		a.current.High = tick.Price
	}
	if tick.Price < a.current.Low {
		a.current.Low = tick.Price
	}
	return completed, ok
}

func (a *Aggregator) seed(tick domain.Tick) {
	a.started = true
	a.current = domain.Candle{
		ID:      tick.ID,
		Time:    a.Boundary(tick.Time),
		Open:    math.NaN(),
		High:    math.NaN(),
		Low:     math.NaN(),
		Close:   math.NaN(),
		IsEmpty: true,
	}
	if !tick.IsSynthetic {
		a.fill(tick)
	}
}

func (a *Aggregator) fill(tick domain.Tick) {
	a.current.Open = tick.Price
	a.current.High = tick.Price
	a.current.Low = tick.Price
	a.current.Close = tick.Price
	a.current.Volume = tick.Volume
	a.current.IsEmpty = false
}

// Current returns the in-progress candle, if any tick has been added.
func (a *Aggregator) Current() (domain.Candle, bool) {
	return a.current, a.started
}

// History returns a copy of all completed candles.
func (a *Aggregator) History() []domain.Candle {
	out := make([]domain.Candle, len(a.history))
	copy(out, a.history)
	return out
}

// Reset discards the in-progress candle and history.
func (a *Aggregator) Reset() {
	a.current = domain.Candle{}
	a.started = false
	a.history = nil
}
