package processor

import (
	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
)

// Strategy receives processor callbacks. Callbacks run synchronously inside
// Feed; a returned error aborts the feed and is returned by Feed.
type Strategy interface {
	OnTick(p *Processor, tick domain.Tick) error
	OnCandle(p *Processor, c domain.Candle) error
	OnMarketOpen(p *Processor) error
	OnMarketClose(p *Processor) error
	OnOrderEvent(p *Processor, o *order.Order, ev order.Event) error
}

// BaseStrategy implements Strategy with no-op callbacks.
// Embed it to override only the callbacks a strategy needs.
type BaseStrategy struct{}

func (BaseStrategy) OnTick(*Processor, domain.Tick) error { return nil }
func (BaseStrategy) OnCandle(*Processor, domain.Candle) error { return nil }
func (BaseStrategy) OnMarketOpen(*Processor) error { return nil }
func (BaseStrategy) OnMarketClose(*Processor) error { return nil }
func (BaseStrategy) OnOrderEvent(*Processor, *order.Order, order.Event) error { return nil }

var _ Strategy = BaseStrategy{}

// Funcs adapts plain functions to Strategy. Nil fields are no-ops.
type Funcs struct {
	Tick        func(p *Processor, tick domain.Tick) error
	Candle      func(p *Processor, c domain.Candle) error
	MarketOpen  func(p *Processor) error
	MarketClose func(p *Processor) error
	OrderEvent  func(p *Processor, o *order.Order, ev order.Event) error
}

var _ Strategy = (*Funcs)(nil)

func (f *Funcs) OnTick(p *Processor, tick domain.Tick) error {
	if f.Tick == nil {
		return nil
	}
	return f.Tick(p, tick)
}

func (f *Funcs) OnCandle(p *Processor, c domain.Candle) error {
	if f.Candle == nil {
		return nil
	}
	return f.Candle(p, c)
}

func (f *Funcs) OnMarketOpen(p *Processor) error {
	if f.MarketOpen == nil {
		return nil
	}
	return f.MarketOpen(p)
}

func (f *Funcs) OnMarketClose(p *Processor) error {
	if f.MarketClose == nil {
		return nil
	}
	return f.MarketClose(p)
}

func (f *Funcs) OnOrderEvent(p *Processor, o *order.Order, ev order.Event) error {
	if f.OrderEvent == nil {
		return nil
	}
	return f.OrderEvent(p, o, ev)
}
