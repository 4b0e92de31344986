package domain

// Summary aggregates the performance of one backtest.
// PnL figures are relative to entry notional, summed over trades.
type Summary struct {
	TestStart  float64
	TestEnd    float64
	DaysTested int
	DaysTraded int

	TradesPerDay float64
	TradesTotal  int
	TradesLong   int
	TradesShort  int
	TradesWin    int
	TradesLoss   int

	PctWin    float64 // fraction of winning trades
	PctLoss   float64 // fraction of losing trades
	AvgWin    float64
	AvgLoss   float64
	AvgPnL    float64
	TotalWin  float64
	TotalLoss float64
	TotalPnL  float64

	MaxDrawDown       float64 // non-positive
	MaxDrawDownStart  float64
	MaxDrawDownEnd    float64 // NaN while not recovered
	MaxDrawDownLength float64 // calendar nights, NaN while not recovered
	AvgDrawDown       float64

	Sharpe   float64
	Sortino  float64
	RSquared float64
}

// DayPerformance is one day-close row of the performance history.
type DayPerformance struct {
	Date        int64   // days since epoch
	Return      float64 // market value change over the day
	PnL         float64 // market value at day close
	DrawDown    float64
	AvgTradePnL float64
	NTrades     int
}

// SeriesPoint is the running market value and drawdown sampled on a candle.
type SeriesPoint struct {
	Time        float64
	MarketValue float64
	DrawDown    float64
}
