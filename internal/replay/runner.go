package replay

import (
	"context"
	"fmt"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// Loader reads tick streams from a tick store.
type Loader struct {
	ticks storage.TickStore
}

// NewLoader creates a new loader over a tick store.
func NewLoader(ticks storage.TickStore) *Loader {
	return &Loader{ticks: ticks}
}

// Load returns the time-ordered ticks for one symbol within [from, to].
func (l *Loader) Load(ctx context.Context, symbol string, from, to float64) ([]domain.Tick, error) {
	ticks, err := l.ticks.GetByTimeRange(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load ticks for %s: %w", symbol, err)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("load ticks for %s: %w", symbol, storage.ErrNotFound)
	}
	if err := ValidateOrdering(ticks); err != nil {
		return nil, fmt.Errorf("symbol %s: %w", symbol, err)
	}
	return ticks, nil
}

// LoadMerged loads every symbol within [from, to] and merges them into one stream.
func (l *Loader) LoadMerged(ctx context.Context, symbols []string, from, to float64) ([]domain.Tick, error) {
	streams := make(map[string][]domain.Tick, len(symbols))
	for _, sym := range symbols {
		ticks, err := l.Load(ctx, sym, from, to)
		if err != nil {
			return nil, err
		}
		streams[sym] = ticks
	}
	return Merge(streams)
}
