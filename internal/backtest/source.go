package backtest

import (
	"context"
	"fmt"
	"math"

	"tick-backtest/internal/config"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/replay"
	"tick-backtest/internal/storage"
)

// LoadTicks returns the merged, time-ordered tick stream selected by cfg.Data.
// CSV sources take precedence; otherwise ticks are read from the store.
func LoadTicks(ctx context.Context, data config.DataConfig, ticks storage.TickStore) ([]domain.Tick, error) {
	if len(data.CSV) > 0 {
		return loadCSV(data.CSV)
	}
	if ticks == nil {
		return nil, fmt.Errorf("%w: no csv sources and no tick store", config.ErrInvalidConfig)
	}

	to := data.To
	if to == 0 {
		to = math.Inf(1)
	}
	return replay.NewLoader(ticks).LoadMerged(ctx, data.Symbols, data.From, to)
}

func loadCSV(sources map[string]string) ([]domain.Tick, error) {
	streams := make(map[string][]domain.Tick, len(sources))
	for sym, path := range sources {
		ticks, err := replay.ReadCSVFile(path, sym)
		if err != nil {
			return nil, err
		}
		streams[sym] = ticks
	}
	return replay.Merge(streams)
}
