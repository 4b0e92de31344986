package processor

import (
	"fmt"
	"math"

	"tick-backtest/internal/calendar"
	"tick-backtest/internal/domain"
)

// TradingHours is a pair of hours of day, in [0, 24), at which the market
// opens and closes.
type TradingHours struct {
	Open  float64
	Close float64
}

// Options configures a processor. Use DefaultOptions as a base.
type Options struct {
	Symbol         string
	BarSize        float64 // candle length, seconds
	LatencySend    float64 // client to exchange, seconds
	LatencyReceive float64 // exchange to client, seconds
	ExecutionMode  domain.ExecutionMode
	HitMarket      bool
	ExactStop      bool
	Cost           domain.Cost
	TradingHours   *TradingHours // nil: market always open

	// StopDrawDown stops trading once drawdown falls to this level (<= 0).
	// Zero disables the check.
	StopDrawDown float64
	// StopLoss stops trading once market value falls to this level (<= 0).
	// Zero disables the check.
	StopLoss float64
}

// DefaultOptions returns one-minute candles, one millisecond latency in each
// direction, trade-price execution and no fees.
func DefaultOptions() Options {
	return Options{
		BarSize:        60,
		LatencySend:    0.001,
		LatencyReceive: 0.001,
		ExecutionMode:  domain.ExecutionModeTrade,
		Cost:           domain.DefaultCost(),
	}
}

// Validate checks the options for configuration errors.
func (o Options) Validate() error {
	if !(o.BarSize > 0) {
		return fmt.Errorf("%w: bar size must be positive, got %v", ErrInvalidConfig, o.BarSize)
	}
	if !(o.LatencySend >= 0) || !(o.LatencyReceive >= 0) {
		return fmt.Errorf("%w: latency must be non-negative, got send=%v receive=%v",
			ErrInvalidConfig, o.LatencySend, o.LatencyReceive)
	}
	switch o.ExecutionMode {
	case domain.ExecutionModeTrade, domain.ExecutionModeBBO, "":
	default:
		return fmt.Errorf("%w: unknown execution mode %q", ErrInvalidConfig, o.ExecutionMode)
	}
	if !(o.Cost.PointValue > 0) {
		return fmt.Errorf("%w: point value must be positive, got %v", ErrInvalidConfig, o.Cost.PointValue)
	}
	if h := o.TradingHours; h != nil {
		if !validHour(h.Open) || !validHour(h.Close) || h.Open == h.Close {
			return fmt.Errorf("%w: malformed trading hours %v-%v", ErrInvalidConfig, h.Open, h.Close)
		}
	}
	if !(o.StopDrawDown <= 0) || !(o.StopLoss <= 0) {
		return fmt.Errorf("%w: stop thresholds must be non-positive, got drawdown=%v loss=%v",
			ErrInvalidConfig, o.StopDrawDown, o.StopLoss)
	}
	return nil
}

func validHour(h float64) bool {
	return !math.IsNaN(h) && h >= 0 && h < calendar.HoursInDay
}

func (o Options) mode() domain.ExecutionMode {
	if o.ExecutionMode == "" {
		return domain.ExecutionModeTrade
	}
	return o.ExecutionMode
}
