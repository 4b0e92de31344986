package domain

import "math"

// Tick is a single timestamped market observation.
// Synthetic ticks carry only ID and Time; they advance a processor's clock
// without touching price-dependent state.
type Tick struct {
	ID          int64   // sequence id within a feed
	Time        float64 // seconds since epoch, non-decreasing within a feed
	Price       float64 // trade price
	Volume      int64   // trade volume
	Bid         float64 // best bid (NaN when absent)
	Ask         float64 // best ask (NaN when absent)
	Symbol      string  // instrument, required only for multi-symbol feeds
	IsSynthetic bool    // heartbeat tick
}

// NewSyntheticTick returns a heartbeat tick for the given id and time.
func NewSyntheticTick(id int64, time float64) Tick {
	return Tick{
		ID:          id,
		Time:        time,
		Price:       math.NaN(),
		Bid:         math.NaN(),
		Ask:         math.NaN(),
		IsSynthetic: true,
	}
}

// HasQuote reports whether both sides of the book are present.
func (t Tick) HasQuote() bool {
	return !math.IsNaN(t.Bid) && !math.IsNaN(t.Ask)
}
