package domain

import "math"

// TradeSide is the direction of a trade.
type TradeSide string

// Trade sides
const (
	TradeSideLong  TradeSide = "LONG"
	TradeSideShort TradeSide = "SHORT"
)

// Sign returns +1 for long and -1 for short.
func (s TradeSide) Sign() float64 {
	if s == TradeSideLong {
		return 1
	}
	return -1
}

// TradeState is the lifecycle state of a trade.
type TradeState string

// Trade states
const (
	TradeStateNew     TradeState = "NEW"
	TradeStateOpened  TradeState = "OPENED"
	TradeStateClosing TradeState = "CLOSING"
	TradeStateClosed  TradeState = "CLOSED"
)

// Trade pairs the entry and exit executions sharing one trade id.
// Cost is accumulated as a non-positive amount and is already included in PnL.
type Trade struct {
	TradeID int
	Symbol  string
	Side    TradeSide
	State   TradeState

	IDSent   int64
	TimeSent float64

	// Entry
	IDEnter    int64
	TimeEnter  float64
	PriceEnter float64

	// Exit
	IDExit    int64
	TimeExit  float64
	PriceExit float64

	// Outcome
	PnL     float64 // NaN until closed
	PnLRel  float64 // PnL / (PriceEnter * PointValue)
	Cost    float64 // accrued fees, non-positive
	CostRel float64

	// Mark-to-market extremes while opened
	MtmMin    float64
	MtmMax    float64
	MtmMinRel float64
	MtmMaxRel float64
}

// NewTrade returns a trade in state NEW with unset prices.
func NewTrade(tradeID int, side TradeSide) Trade {
	nan := math.NaN()
	return Trade{
		TradeID:    tradeID,
		Side:       side,
		State:      TradeStateNew,
		TimeSent:   nan,
		TimeEnter:  nan,
		PriceEnter: nan,
		TimeExit:   nan,
		PriceExit:  nan,
		PnL:        nan,
		PnLRel:     nan,
	}
}

// IsClosed reports whether the trade has been exited.
func (t Trade) IsClosed() bool {
	return t.State == TradeStateClosed
}
