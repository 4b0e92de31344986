// Package processor drives the simulation: it feeds ticks through the candle
// aggregator, alarms, live orders, the trade ledger and the statistics
// accumulator, invoking strategy callbacks at each phase.
package processor

import (
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/btree"

	"tick-backtest/internal/calendar"
	"tick-backtest/internal/candle"
	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
	"tick-backtest/internal/statistics"
	"tick-backtest/internal/trade"
)

// Stop reasons reported by StopReason.
const (
	StopReasonDrawDown = "drawdown limit reached"
	StopReasonLoss     = "loss limit reached"
	StopReasonManual   = "stopped by strategy"
)

// Attacher is implemented by strategies that need the processor before the
// first tick, e.g. to keep it for handler-table callbacks.
type Attacher interface {
	Attach(p *Processor)
}

// Processor simulates one instrument. It is not safe for concurrent use.
type Processor struct {
	opts     Options
	exec     order.Execution
	strategy Strategy

	candles    *candle.Aggregator
	stats      *statistics.Accumulator
	ledger     *trade.Ledger
	openAlarm  *calendar.Alarm
	closeAlarm *calendar.Alarm

	live        *btree.Map[int, *order.Order]
	archive     []*order.Order
	nextOrderID int

	tick       domain.Tick
	started    bool
	lastPrice  float64
	marketOpen bool
	stopped    bool
	stopReason string
	finalized  bool
}

// New creates a processor. A nil strategy receives no callbacks.
func New(opts Options, strategy Strategy) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = BaseStrategy{}
	}

	agg, err := candle.NewAggregator(opts.BarSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p := &Processor{
		opts: opts,
		exec: order.Execution{
			LatencySend:    opts.LatencySend,
			LatencyReceive: opts.LatencyReceive,
			Mode:           opts.mode(),
			HitMarket:      opts.HitMarket,
			ExactStop:      opts.ExactStop,
		},
		strategy: strategy,
		candles:  agg,
		stats:    statistics.New(opts.mode()),
		ledger:   trade.NewLedger(opts.Symbol, opts.Cost),
	}

	if h := opts.TradingHours; h != nil {
		if p.openAlarm, err = calendar.NewAlarm(h.Open); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if p.closeAlarm, err = calendar.NewAlarm(h.Close); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	p.Reset()

	if a, ok := strategy.(Attacher); ok {
		a.Attach(p)
	}
	return p, nil
}

// Reset restores the just-constructed state, keeping options and strategy.
func (p *Processor) Reset() {
	p.candles.Reset()
	p.stats.Reset()
	p.ledger.Reset()
	if p.openAlarm != nil {
		p.openAlarm.Reset()
		p.closeAlarm.Reset()
	}

	p.live = btree.NewMap[int, *order.Order](32)
	p.archive = nil
	p.nextOrderID = 0

	p.tick = domain.Tick{}
	p.started = false
	p.lastPrice = math.NaN()
	p.marketOpen = p.openAlarm == nil
	p.stopped = false
	p.stopReason = ""
	p.finalized = false
}

// Feed processes one tick. Ticks must arrive in non-decreasing time order.
//
// Phases, in order: stop conditions, market open/close alarms, candle
// aggregation, OnTick, live order updates (with trade and statistics
// accounting), open trade upkeep, statistics tick update.
func (p *Processor) Feed(tick domain.Tick) error {
	if p.finalized {
		return ErrFinalized
	}
	if p.started && tick.Time < p.tick.Time {
		return fmt.Errorf("%w: tick %d at %v precedes previous tick %d at %v",
			ErrInvalidOrdering, tick.ID, tick.Time, p.tick.ID, p.tick.Time)
	}

	nights := 0
	if p.started {
		nights = calendar.NNights(p.tick.Time, tick.Time)
	}

	// 1. Stop conditions, evaluated on the state left by the previous tick.
	// Once stopped, quotes registered since the stop are withdrawn as well.
	p.checkStopConditions()
	if p.stopped {
		p.CancelOrders()
	}

	// 2. Market open/close
	if err := p.ringAlarms(tick.Time); err != nil {
		return err
	}

	// 3. Candles
	if c, ok := p.candles.Add(tick); ok {
		p.stats.UpdateCandle(c)
		if err := p.strategy.OnCandle(p, c); err != nil {
			return fmt.Errorf("on candle %v: %w", c.Time, err)
		}
	}

	// 4. Tick callback
	if !tick.IsSynthetic {
		if err := p.strategy.OnTick(p, tick); err != nil {
			return fmt.Errorf("on tick %d: %w", tick.ID, err)
		}
	}

	// 5. Orders
	if err := p.updateOrders(tick); err != nil {
		return err
	}

	// 6. Open trades
	p.ledger.OnTick(tick, nights, p.lastPrice)
	if p.stopped {
		if err := p.ledger.Flatten(p.sendFlatten, p.hasLiveOrder); err != nil {
			return err
		}
	}

	// 7. Statistics
	p.stats.UpdateTick(tick)

	p.tick = tick
	p.started = true
	if !tick.IsSynthetic {
		p.lastPrice = tick.Price
	}
	return nil
}

// FeedAll feeds ticks in order, stopping at the first error.
func (p *Processor) FeedAll(ticks []domain.Tick) error {
	for _, t := range ticks {
		if err := p.Feed(t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) checkStopConditions() {
	if p.stopped || !p.started {
		return
	}
	switch {
	case p.opts.StopDrawDown < 0 && p.stats.DrawDown() <= p.opts.StopDrawDown:
		p.StopTrading(StopReasonDrawDown)
	case p.opts.StopLoss < 0 && p.stats.MarketValue() <= p.opts.StopLoss:
		p.StopTrading(StopReasonLoss)
	}
}

// ringAlarms opens and closes the market. The market is marked closed only
// after OnMarketClose returns so the strategy can still send closing orders.
func (p *Processor) ringAlarms(t float64) error {
	if p.openAlarm == nil {
		return nil
	}
	if p.openAlarm.IsRinging(t) {
		p.marketOpen = true
		if err := p.strategy.OnMarketOpen(p); err != nil {
			return fmt.Errorf("on market open: %w", err)
		}
	}
	if p.closeAlarm.IsRinging(t) {
		if err := p.strategy.OnMarketClose(p); err != nil {
			return fmt.Errorf("on market close: %w", err)
		}
		p.marketOpen = false
	}
	return nil
}

// updateOrders advances every order that was live when the pass started.
// Orders sent from callbacks during the pass are first updated on the next tick.
func (p *Processor) updateOrders(tick domain.Tick) error {
	orders := make([]*order.Order, 0, p.live.Len())
	p.live.Scan(func(_ int, o *order.Order) bool {
		orders = append(orders, o)
		return true
	})

	for _, o := range orders {
		events := o.Update(tick, p.exec)
		if len(events) == 0 {
			continue
		}

		p.stats.UpdateOrder(o, events)
		if tr, closed := p.ledger.OnOrder(o, events); closed {
			p.stats.UpdateTrade(tr)
		}
		if o.IsTerminal() {
			p.live.Delete(o.ID())
			p.archive = append(p.archive, o)
		}

		for _, ev := range events {
			if err := p.strategy.OnOrderEvent(p, o, ev); err != nil {
				return fmt.Errorf("on order %d %s: %w", o.ID(), ev, err)
			}
		}
	}
	return nil
}

// SendOrder submits a new order. It returns a nil order without error when
// trading is not allowed; the order is discarded.
func (p *Processor) SendOrder(params order.Params) (*order.Order, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !p.CanTrade() {
		return nil, nil
	}
	return p.submit(params)
}

func (p *Processor) submit(params order.Params) (*order.Order, error) {
	o, err := order.New(p.nextOrderID+1, params)
	if err != nil {
		return nil, err
	}
	p.nextOrderID++
	p.live.Set(o.ID(), o)
	return o, nil
}

func (p *Processor) sendFlatten(params order.Params) error {
	_, err := p.submit(params)
	return err
}

// hasLiveOrder reports whether a non-terminal order of the given side exists
// for the trade.
func (p *Processor) hasLiveOrder(tradeID int, side domain.Side) bool {
	found := false
	p.live.Scan(func(_ int, o *order.Order) bool {
		found = o.TradeID() == tradeID && o.Side() == side
		return !found
	})
	return found
}

// CancelOrder requests cancellation of a live order.
func (p *Processor) CancelOrder(id int) error {
	o, ok := p.live.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	return o.Cancel()
}

// CancelOrders requests cancellation of every cancellable live order.
func (p *Processor) CancelOrders() {
	p.live.Scan(func(_ int, o *order.Order) bool {
		if o.IsRegistered() && o.Type() != domain.OrderTypeMarket {
			_ = o.Cancel()
		}
		return true
	})
}

// StopTrading disallows new orders, cancels live orders and, from the next
// trade upkeep on, flattens every opened trade with one market order each.
func (p *Processor) StopTrading(reason string) {
	if p.stopped {
		return
	}
	if reason == "" {
		reason = StopReasonManual
	}
	p.stopped = true
	p.stopReason = reason
	p.CancelOrders()
}

// Finalize closes the last statistics day. Feed fails afterwards.
// Calling Finalize more than once has no further effect.
func (p *Processor) Finalize() {
	if p.finalized {
		return
	}
	p.stats.Finalize()
	p.finalized = true
}

// CanTrade reports whether SendOrder accepts orders.
func (p *Processor) CanTrade() bool {
	return !p.stopped && !p.finalized && p.marketOpen
}

// IsTradingHoursSet reports whether trading hours were configured.
func (p *Processor) IsTradingHoursSet() bool { return p.openAlarm != nil }

// IsMarketOpen reports whether the market is within trading hours.
func (p *Processor) IsMarketOpen() bool { return p.marketOpen }

// IsStopped reports whether trading was stopped.
func (p *Processor) IsStopped() bool { return p.stopped }

// StopReason returns why trading was stopped, or "".
func (p *Processor) StopReason() string { return p.stopReason }

// Symbol returns the configured symbol.
func (p *Processor) Symbol() string { return p.opts.Symbol }

// Options returns the processor options.
func (p *Processor) Options() Options { return p.opts }

// Now returns the time of the last processed tick.
func (p *Processor) Now() float64 { return p.tick.Time }

// LastPrice returns the last non-synthetic trade price, or NaN.
func (p *Processor) LastPrice() float64 { return p.lastPrice }

// Position returns the executed position in contracts.
func (p *Processor) Position() int { return p.stats.Position() }

// PositionPlanned returns the position still in flight.
func (p *Processor) PositionPlanned() int { return p.stats.PositionPlanned() }

// MarketValue returns the current market value.
func (p *Processor) MarketValue() float64 { return p.stats.MarketValue() }

// DrawDown returns the current drawdown.
func (p *Processor) DrawDown() float64 { return p.stats.DrawDown() }

// Order returns the order with the given id, live or archived.
func (p *Processor) Order(id int) (*order.Order, bool) {
	if o, ok := p.live.Get(id); ok {
		return o, true
	}
	for _, o := range p.archive {
		if o.ID() == id {
			return o, true
		}
	}
	return nil, false
}

// LiveOrders returns orders that are not yet terminal, by id.
func (p *Processor) LiveOrders() []*order.Order {
	out := make([]*order.Order, 0, p.live.Len())
	p.live.Scan(func(_ int, o *order.Order) bool {
		out = append(out, o)
		return true
	})
	return out
}

// Candles returns completed candles.
func (p *Processor) Candles() []domain.Candle { return p.candles.History() }

// Orders returns the order ledger, archived and live, sorted by order id.
func (p *Processor) Orders() []domain.OrderRecord {
	out := make([]domain.OrderRecord, 0, len(p.archive)+p.live.Len())
	for _, o := range p.archive {
		out = append(out, o.Record(p.opts.Symbol))
	}
	for _, o := range p.LiveOrders() {
		out = append(out, o.Record(p.opts.Symbol))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// Trades returns the trade ledger sorted by trade id.
func (p *Processor) Trades() []domain.Trade { return p.ledger.Trades() }

// Summary returns the performance summary.
func (p *Processor) Summary() domain.Summary { return p.stats.Summary() }

// DayPerformance returns the day-close performance history.
func (p *Processor) DayPerformance() []domain.DayPerformance { return p.stats.Days() }

// CandleSeries returns market value and drawdown sampled at each candle.
func (p *Processor) CandleSeries() []domain.SeriesPoint { return p.stats.CandleSeries() }

// Result collects the reporting surface of the processor.
func (p *Processor) Result() domain.Result {
	return domain.Result{
		Symbol:       p.opts.Symbol,
		Candles:      p.Candles(),
		Orders:       p.Orders(),
		Trades:       p.Trades(),
		Summary:      p.Summary(),
		Days:         p.DayPerformance(),
		CandleSeries: p.CandleSeries(),
		StopReason:   p.stopReason,
	}
}
