// Package strategy holds example trading strategies driven by the processor
// and the rolling indicators they use.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/processor"
)

// Factory errors
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrMissingParam    = errors.New("missing strategy parameter")
	ErrInvalidParam    = errors.New("invalid strategy parameter")
)

// Parameter names
const (
	ParamPeriodFast = "period_fast"
	ParamPeriodSlow = "period_slow"
	ParamN          = "n"
	ParamK          = "k"
)

// Names returns the names FromConfig accepts, sorted.
func Names() []string {
	names := []string{domain.StrategyNameSMACrossover, domain.StrategyNameBBandsMarketMaker}
	sort.Strings(names)
	return names
}

// FromConfig creates a strategy from domain.StrategyConfig.
// Each call returns a fresh instance; strategies hold per-processor state.
func FromConfig(cfg domain.StrategyConfig) (processor.Strategy, error) {
	var (
		s   processor.Strategy
		err error
	)
	switch cfg.Name {
	case domain.StrategyNameSMACrossover:
		s, err = fromSMACrossoverConfig(cfg)
	case domain.StrategyNameBBandsMarketMaker:
		s, err = fromBBandsConfig(cfg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Name)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func fromSMACrossoverConfig(cfg domain.StrategyConfig) (*SMACrossover, error) {
	fast, err := intParam(cfg, ParamPeriodFast)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(cfg, ParamPeriodSlow)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: %s (%d) must be less than %s (%d)",
			ErrInvalidParam, ParamPeriodFast, fast, ParamPeriodSlow, slow)
	}

	s, err := NewSMACrossover(fast, slow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return s, nil
}

func fromBBandsConfig(cfg domain.StrategyConfig) (*BBandsMarketMaker, error) {
	n, err := intParam(cfg, ParamN)
	if err != nil {
		return nil, err
	}
	k, ok := cfg.Param(ParamK)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, ParamK)
	}

	s, err := NewBBandsMarketMaker(n, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return s, nil
}

func intParam(cfg domain.StrategyConfig, name string) (int, error) {
	v, ok := cfg.Param(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	if v != math.Trunc(v) || v < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrInvalidParam, name, v)
	}
	return int(v), nil
}
