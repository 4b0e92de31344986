package backtest

import (
	"fmt"

	"tick-backtest/internal/config"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/processor"
	"tick-backtest/internal/replay"
	"tick-backtest/internal/strategy"
)

// Engine is what a run feeds: a single processor or one per symbol.
type Engine interface {
	replay.Feeder
	Finalize()
	Results() []domain.Result
}

// single adapts one Processor to Engine.
type single struct {
	*processor.Processor
}

// Feed rejects ticks tagged with another symbol.
func (s single) Feed(tick domain.Tick) error {
	if tick.Symbol != "" && tick.Symbol != s.Symbol() {
		return fmt.Errorf("%w: %q", processor.ErrUnknownSymbol, tick.Symbol)
	}
	return s.Processor.Feed(tick)
}

func (s single) Results() []domain.Result {
	return []domain.Result{s.Result()}
}

// NewEngine builds the engine for symbols from cfg. One symbol gets a plain
// processor; several share a processor.Multi fed with heartbeat ticks.
func NewEngine(cfg *config.Config, symbols []string) (Engine, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", config.ErrInvalidConfig)
	}

	// Each symbol gets its own strategy instance.
	stratCfg := cfg.StrategyDomainConfig()
	strategies := make(map[string]processor.Strategy, len(symbols))
	for _, sym := range symbols {
		s, err := strategy.FromConfig(stratCfg)
		if err != nil {
			return nil, fmt.Errorf("strategy for %s: %w", sym, err)
		}
		strategies[sym] = s
	}
	newStrategy := func(symbol string) processor.Strategy {
		return strategies[symbol]
	}

	if len(symbols) == 1 {
		p, err := processor.New(cfg.EngineOptions(symbols[0]), newStrategy(symbols[0]))
		if err != nil {
			return nil, err
		}
		return single{p}, nil
	}

	m, err := processor.NewMulti(symbols, cfg.EngineOptions(""), newStrategy)
	if err != nil {
		return nil, err
	}
	return m, nil
}

var (
	_ Engine = single{}
	_ Engine = (*processor.Multi)(nil)
)
