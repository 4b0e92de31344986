package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tick-backtest/internal/backtest"
	"tick-backtest/internal/config"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/logger"
	"tick-backtest/internal/storage"
)

// ErrExecutionNotFound is returned when the execution id doesn't exist.
var ErrExecutionNotFound = errors.New("execution not found")

type tradeKey struct {
	symbol string
	id     int
}

// ReplayVerifier replays stored executions.
type ReplayVerifier struct {
	runs      storage.RunStore
	trades    storage.TradeStore
	summaries storage.SummaryStore
	log       *logger.Logger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore     storage.RunStore
	TradeStore   storage.TradeStore
	SummaryStore storage.SummaryStore
	Logger       *logger.Logger // Default: discard
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &ReplayVerifier{
		runs:      opts.RunStore,
		trades:    opts.TradeStore,
		summaries: opts.SummaryStore,
		log:       log,
	}
}

// Verify re-runs cfg over ticks without persisting and compares the outcome
// with the stored execution. A differing run id means the configuration or
// the data changed since the execution was recorded.
func (v *ReplayVerifier) Verify(ctx context.Context, executionID string, cfg *config.Config, ticks []domain.Tick) (*Report, error) {
	// 1. Load stored execution
	run, err := v.runs.GetByExecutionID(ctx, executionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return nil, err
	}
	stored, err := v.trades.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	summaries, err := v.summaries.GetByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	// 2. Replay
	out, err := backtest.NewRunner(nil, nil, v.log).Run(ctx, cfg, ticks)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	// 3. Compare
	report := &Report{
		ExecutionID:   executionID,
		RunID:         run.RunID,
		ReplayedRunID: out.Run.RunID,
		TradesStored:  len(stored),
	}

	replayed := make(map[tradeKey]domain.Trade)
	replayedSummaries := make(map[string]domain.Summary, len(out.Results))
	for _, res := range out.Results {
		report.TradesReplayed += len(res.Trades)
		replayedSummaries[res.Symbol] = res.Summary
		for _, t := range res.Trades {
			replayed[tradeKey{res.Symbol, t.TradeID}] = t
		}
	}

	for _, t := range stored {
		r, ok := replayed[tradeKey{t.Symbol, t.TradeID}]
		if !ok {
			report.Divergences = append(report.Divergences, FieldDivergence{
				Symbol:   t.Symbol,
				TradeID:  t.TradeID,
				Field:    "Trade",
				Expected: "present",
				Actual:   "missing",
			})
			continue
		}
		report.Divergences = append(report.Divergences, CompareTrades(t, r)...)
	}

	for _, s := range summaries {
		r, ok := replayedSummaries[s.Symbol]
		if !ok {
			report.Divergences = append(report.Divergences, FieldDivergence{
				Symbol:   s.Symbol,
				Field:    "Summary",
				Expected: "present",
				Actual:   "missing",
			})
			continue
		}
		report.Divergences = append(report.Divergences, CompareSummaries(s.Symbol, s.Summary, r)...)
	}

	v.log.WithRun(run.RunID, executionID).WithFields(logrus.Fields{
		"match":       report.Match(),
		"divergences": len(report.Divergences),
	}).Info("execution verified")
	return report, nil
}
