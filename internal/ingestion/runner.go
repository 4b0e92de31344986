// Package ingestion loads recorded ticks into the tick store, resuming from
// the last checkpoint of each symbol.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/observability"
	"tick-backtest/internal/replay"
	"tick-backtest/internal/storage"
)

// DefaultBatchSize is the number of ticks written per store call.
const DefaultBatchSize = 5000

// Runner writes tick streams to a tick store in batches.
type Runner struct {
	ticks     storage.TickStore
	progress  storage.IngestProgressStore
	batchSize int
	metrics   *observability.Metrics
	log       *logger.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	TickStore     storage.TickStore
	ProgressStore storage.IngestProgressStore
	BatchSize     int                    // Default: DefaultBatchSize
	Metrics       *observability.Metrics // Optional
	Logger        *logger.Logger         // Default: discard
}

// Stats reports what one ingestion did.
type Stats struct {
	Symbol   string
	Read     int   // ticks in the input
	Skipped  int   // at or before the checkpoint
	Written  int   // newly stored
	Existing int   // already stored without a checkpoint
	LastID   int64 // checkpoint after the run
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Runner{
		ticks:     opts.TickStore,
		progress:  opts.ProgressStore,
		batchSize: batchSize,
		metrics:   opts.Metrics,
		log:       log,
	}
}

// Ingest stores ticks of one symbol. Ticks must be time ordered with
// increasing ids; those with id <= the saved checkpoint are skipped, so
// re-running over a growing file only appends the new tail.
func (r *Runner) Ingest(ctx context.Context, symbol string, ticks []domain.Tick) (*Stats, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", storage.ErrInvalidInput)
	}
	if err := replay.ValidateOrdering(ticks); err != nil {
		return nil, fmt.Errorf("symbol %s: %w", symbol, err)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].ID <= ticks[i-1].ID {
			return nil, fmt.Errorf("%w: symbol %s: tick id %d after %d", storage.ErrInvalidInput, symbol, ticks[i].ID, ticks[i-1].ID)
		}
	}

	stats := &Stats{Symbol: symbol, Read: len(ticks)}

	var lastID int64
	if r.progress != nil {
		p, err := r.progress.GetProgress(ctx, symbol)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("get progress %s: %w", symbol, err)
		default:
			lastID = p.LastID
		}
	}
	stats.LastID = lastID

	log := r.log.WithSymbol(symbol)
	log.WithFields(logrus.Fields{"ticks": len(ticks), "checkpoint": lastID}).Info("ingestion started")

	batch := make([]domain.Tick, 0, r.batchSize)
	for _, t := range ticks {
		if t.ID <= lastID {
			stats.Skipped++
			continue
		}
		t.Symbol = symbol
		batch = append(batch, t)
		if len(batch) == r.batchSize {
			if err := r.flush(ctx, symbol, batch, stats); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := r.flush(ctx, symbol, batch, stats); err != nil {
			return stats, err
		}
	}

	log.WithFields(logrus.Fields{
		"written":  stats.Written,
		"skipped":  stats.Skipped,
		"existing": stats.Existing,
		"last_id":  stats.LastID,
	}).Info("ingestion finished")
	return stats, nil
}

// IngestFile reads a CSV tick file and ingests it under symbol.
func (r *Runner) IngestFile(ctx context.Context, symbol string, path string) (*Stats, error) {
	ticks, err := replay.ReadCSVFile(path, symbol)
	if err != nil {
		return nil, err
	}
	return r.Ingest(ctx, symbol, ticks)
}

// flush writes one batch and advances the checkpoint. A batch rejected as
// duplicate is retried tick by tick, keeping ticks that are not yet stored.
func (r *Runner) flush(ctx context.Context, symbol string, batch []domain.Tick, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := r.ticks.InsertBulk(ctx, batch)
	if r.metrics != nil {
		r.metrics.RecordStoreWrite("ticks", time.Since(start), err)
	}

	written := len(batch)
	if errors.Is(err, storage.ErrDuplicateKey) {
		written = 0
		for i := range batch {
			err = r.ticks.InsertBulk(ctx, batch[i:i+1])
			if errors.Is(err, storage.ErrDuplicateKey) {
				stats.Existing++
				continue
			}
			if err != nil {
				return fmt.Errorf("insert tick %d: %w", batch[i].ID, err)
			}
			written++
		}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stats.Written += written
	if r.metrics != nil {
		r.metrics.TicksIngested.WithLabelValues(symbol).Add(float64(written))
	}

	last := batch[len(batch)-1]
	stats.LastID = last.ID
	if r.progress != nil {
		if err := r.progress.SetProgress(ctx, &storage.IngestProgress{
			Symbol: symbol,
			LastID: last.ID,
			Time:   last.Time,
		}); err != nil {
			return fmt.Errorf("set progress: %w", err)
		}
	}
	return nil
}
