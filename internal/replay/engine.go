package replay

import (
	"context"

	"tick-backtest/internal/domain"
)

// Feeder consumes ticks one at a time. Both processor.Processor and
// processor.Multi satisfy it.
type Feeder interface {
	Feed(tick domain.Tick) error
}

// Replay feeds ticks in order and stops at the first error.
// Cancellation is checked between ticks.
func Replay(ctx context.Context, ticks []domain.Tick, f Feeder) (int, error) {
	for i, t := range ticks {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := f.Feed(t); err != nil {
			return i, err
		}
	}
	return len(ticks), nil
}
