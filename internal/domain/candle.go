package domain

// Candle is an OHLCV summary over one fixed-length bar.
// Time is the bar-close boundary. A candle that only received synthetic ticks
// has IsEmpty set and NaN prices.
type Candle struct {
	ID      int64   // id of the tick that opened the bar
	Time    float64 // bar-close boundary (seconds)
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  int64
	IsEmpty bool
}
