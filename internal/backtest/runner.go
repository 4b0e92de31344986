// Package backtest runs configured strategies over recorded tick streams and
// persists what they produce.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tick-backtest/internal/config"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/idhash"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/observability"
	"tick-backtest/internal/replay"
	"tick-backtest/internal/storage"
)

// Stores receive the output of a run. Candles and Series are optional.
type Stores struct {
	Runs      storage.RunStore
	Orders    storage.OrderStore
	Trades    storage.TradeStore
	Summaries storage.SummaryStore
	Days      storage.DayPerformanceStore
	Candles   storage.CandleStore
	Series    storage.EquitySeriesStore
}

// Outcome is the result of one run.
type Outcome struct {
	Run     domain.RunRecord
	Results []domain.Result
}

// Runner executes backtests.
type Runner struct {
	stores  *Stores                // nil: results are not persisted
	metrics *observability.Metrics // nil: no metrics
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
}

// NewRunner creates a new backtest runner. stores and m may be nil.
func NewRunner(stores *Stores, m *observability.Metrics, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		stores:  stores,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Run feeds ticks through an engine built from cfg, finalizes it and
// persists the results. ticks must be a merged stream tagged with symbols.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, ticks []domain.Tick) (*Outcome, error) {
	started := r.now()
	name := cfg.Strategy.Name

	out, err := r.run(ctx, cfg, ticks, started)
	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		r.log.WithComponent("backtest").WithError(err).WithField("strategy", name).Error("backtest failed")
	}
	if r.metrics != nil {
		r.metrics.RecordRun(name, status, r.now().Sub(started))
	}
	return out, err
}

func (r *Runner) run(ctx context.Context, cfg *config.Config, ticks []domain.Tick, started time.Time) (*Outcome, error) {
	symbols := cfg.Data.Symbols
	if len(symbols) == 0 {
		symbols = symbolsOf(ticks)
	}

	engine, err := NewEngine(cfg, symbols)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	fingerprint := cfg.Fingerprint()
	run := domain.RunRecord{
		ExecutionID: r.newID(),
		RunID:       idhash.ComputeRunID(cfg.Strategy.Name, fingerprint, symbols, idhash.ComputeDataFingerprint(ticks)),
		Strategy:    cfg.Strategy.Name,
		Symbols:     symbols,
		StartedAt:   started,
		Config:      fingerprint,
	}
	log := r.log.WithRun(run.RunID, run.ExecutionID)
	log.WithFields(logrus.Fields{
		"strategy": run.Strategy,
		"symbols":  symbols,
		"ticks":    len(ticks),
	}).Info("backtest started")

	fed, err := replay.Replay(ctx, ticks, engine)
	run.TicksFed = int64(fed)
	if r.metrics != nil {
		r.metrics.TicksFed.WithLabelValues(run.Strategy).Add(float64(fed))
	}
	if err != nil {
		return nil, fmt.Errorf("feed tick %d of %d: %w", fed+1, len(ticks), err)
	}

	engine.Finalize()
	results := engine.Results()
	run.FinishedAt = r.now()

	for _, res := range results {
		entry := log.WithFields(logrus.Fields{
			"symbol":    res.Symbol,
			"orders":    len(res.Orders),
			"trades":    res.Summary.TradesTotal,
			"total_pnl": res.Summary.TotalPnL,
		})
		if res.StopReason != "" {
			entry.WithField("stop_reason", res.StopReason).Warn("trading stopped")
		} else {
			entry.Info("symbol finished")
		}
		if r.metrics != nil {
			r.metrics.RecordResult(run.Strategy, res)
		}
	}

	if r.stores != nil {
		if err := r.persist(ctx, &run, results); err != nil {
			return nil, fmt.Errorf("persist: %w", err)
		}
		log.Info("results persisted")
	}

	log.WithField("duration", run.FinishedAt.Sub(started).String()).Info("backtest finished")
	return &Outcome{Run: run, Results: results}, nil
}

// persist writes the run record first, then every symbol's rows.
func (r *Runner) persist(ctx context.Context, run *domain.RunRecord, results []domain.Result) error {
	s := r.stores
	if err := r.write("runs", func() error { return s.Runs.Insert(ctx, run) }); err != nil {
		return err
	}

	for _, res := range results {
		execID, sym := run.ExecutionID, res.Symbol
		writes := []storeWrite{
			{"orders", func() error { return s.Orders.InsertBulk(ctx, execID, res.Orders) }},
			{"trades", func() error { return s.Trades.InsertBulk(ctx, execID, res.Trades) }},
			{"summaries", func() error {
				return s.Summaries.Insert(ctx, execID, domain.SymbolSummary{
					Symbol:     sym,
					StopReason: res.StopReason,
					Summary:    res.Summary,
				})
			}},
			{"days", func() error { return s.Days.InsertBulk(ctx, execID, sym, res.Days) }},
		}
		if s.Candles != nil {
			writes = append(writes, storeWrite{"candles", func() error { return s.Candles.InsertBulk(ctx, execID, sym, res.Candles) }})
		}
		if s.Series != nil {
			writes = append(writes, storeWrite{"equity_series", func() error { return s.Series.InsertBulk(ctx, execID, sym, res.CandleSeries) }})
		}

		for _, w := range writes {
			if err := r.write(w.store, w.fn); err != nil {
				return fmt.Errorf("symbol %s: %w", sym, err)
			}
		}
	}
	return nil
}

type storeWrite struct {
	store string
	fn    func() error
}

func (r *Runner) write(store string, fn func() error) error {
	start := time.Now()
	err := fn()
	if r.metrics != nil {
		r.metrics.RecordStoreWrite(store, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", store, err)
	}
	return nil
}

// symbolsOf lists symbols in order of first appearance.
func symbolsOf(ticks []domain.Tick) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range ticks {
		if _, ok := seen[t.Symbol]; ok {
			continue
		}
		seen[t.Symbol] = struct{}{}
		out = append(out, t.Symbol)
	}
	return out
}
