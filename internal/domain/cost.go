package domain

// Cost is the commission and fee schedule applied to trades.
// All fees are non-negative magnitudes; they are charged against PnL.
type Cost struct {
	Cancel     float64 // per cancelled order
	Order      float64 // per sent order
	TradeAbs   float64 // per execution
	StockAbs   float64 // per contract executed
	TradeRel   float64 // fraction of executed notional
	LongAbs    float64 // per night a long trade is held
	LongRel    float64 // fraction of marked notional per night held long
	ShortAbs   float64 // per night a short trade is held
	ShortRel   float64 // fraction of marked notional per night held short
	PointValue float64 // contract multiplier
}

// DefaultCost returns a zero-fee schedule with point value 1.
func DefaultCost() Cost {
	return Cost{PointValue: 1}
}
