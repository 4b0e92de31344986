package replay

import (
	"fmt"

	"tick-backtest/internal/domain"
)

// ValidateOrdering checks that tick times are non-decreasing.
// The engine never reorders input; out-of-order data is rejected up front.
func ValidateOrdering(ticks []domain.Tick) error {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Time < ticks[i-1].Time {
			return fmt.Errorf("%w: tick %d at %v precedes tick %d at %v",
				ErrInvalidOrdering, ticks[i].ID, ticks[i].Time, ticks[i-1].ID, ticks[i-1].Time)
		}
	}
	return nil
}

// compareTicks orders ticks by (time ASC, symbol ASC, seq ASC).
// seq is the position within the source stream.
func compareTicks(a, b mergeItem) bool {
	if a.tick.Time != b.tick.Time {
		return a.tick.Time < b.tick.Time
	}
	if a.tick.Symbol != b.tick.Symbol {
		return a.tick.Symbol < b.tick.Symbol
	}
	return a.seq < b.seq
}
