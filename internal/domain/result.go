package domain

// Result is everything a processor reports for one symbol after a feed.
type Result struct {
	Symbol       string
	Candles      []Candle
	Orders       []OrderRecord
	Trades       []Trade
	Summary      Summary
	Days         []DayPerformance
	CandleSeries []SeriesPoint
	StopReason   string // empty unless trading was stopped
}
