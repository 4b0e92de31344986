// Package order implements the order lifecycle state machine.
//
// An order carries two states: the exchange-side shadow state, which changes
// as soon as the exchange would act, and the client state, which follows the
// shadow state after the receive latency has elapsed. Latency is applied to
// tick timestamps only; all phase comparisons are strict so that at least one
// tick of latency is always observed.
package order

import (
	"fmt"
	"math"

	"tick-backtest/internal/domain"
)

// Execution holds the matching parameters applied by Update.
type Execution struct {
	LatencySend    float64 // client to exchange, seconds
	LatencyReceive float64 // exchange to client, seconds
	Mode           domain.ExecutionMode
	// HitMarket fills a limit order at the trade price when it executes on
	// the very tick that registered it on the exchange.
	HitMarket bool
	// ExactStop fills stop and trail orders at their trigger price.
	ExactStop bool
}

// Order is a single order and its lifecycle timestamps.
type Order struct {
	id          int
	tradeID     int
	side        domain.Side
	typ         domain.OrderType
	price       float64
	trailOffset float64
	trigger     float64
	activated   bool // stop or trail breached, fills on the next eligible tick
	comment     string
	tag         string

	state    domain.OrderState
	exchange domain.ExchangeState

	idSent               int64
	idExchangeRegistered int64
	idRegistered         int64
	idExchangeExecuted   int64
	idProcessed          int64

	timeSent               float64
	timeExchangeRegistered float64
	timeRegistered         float64
	timeExchangeExecuted   float64
	timeExecuted           float64
	timeCancel             float64
	timeExchangeCancel     float64
	timeCancelled          float64
	timeProcessed          float64

	priceExchangeExecuted float64
	priceExecuted         float64
}

// New creates an order with the given handle from validated parameters.
func New(id int, p Params) (*Order, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	nan := math.NaN()
	o := &Order{
		id:          id,
		tradeID:     p.TradeID,
		side:        p.Side,
		typ:         p.Type,
		price:       p.Price,
		trailOffset: p.TrailOffset,
		trigger:     nan,
		comment:     p.Comment,
		tag:         p.Tag,
		state:       domain.OrderStateNew,
		exchange:    domain.ExchangeStateWait,

		idSent:               -1,
		idExchangeRegistered: -1,
		idRegistered:         -1,
		idExchangeExecuted:   -1,
		idProcessed:          -1,

		timeSent:               nan,
		timeExchangeRegistered: nan,
		timeRegistered:         nan,
		timeExchangeExecuted:   nan,
		timeExecuted:           nan,
		timeCancel:             nan,
		timeExchangeCancel:     nan,
		timeCancelled:          nan,
		timeProcessed:          nan,

		priceExchangeExecuted: nan,
		priceExecuted:         nan,
	}
	switch o.typ {
	case domain.OrderTypeMarket, domain.OrderTypeTrail:
		o.price = nan
	case domain.OrderTypeStop:
		o.trigger = p.Price
	}
	return o, nil
}

// Update advances the order by one tick and returns the client-visible events
// that occurred, in order. Terminal orders are not modified.
func (o *Order) Update(tick domain.Tick, exec Execution) []Event {
	if o.state.IsTerminal() {
		return nil
	}

	var events []Event

	if o.state == domain.OrderStateNew {
		if math.IsNaN(o.timeSent) {
			o.timeSent = tick.Time
			o.idSent = tick.ID
			o.timeExchangeRegistered = tick.Time + exec.LatencySend
			o.timeRegistered = o.timeExchangeRegistered + exec.LatencyReceive
			events = append(events, EventSent)
		}
		if tick.Time > o.timeExchangeRegistered && o.exchange == domain.ExchangeStateWait {
			o.exchange = domain.ExchangeStateRegistered
			o.idExchangeRegistered = tick.ID
		}
		if tick.Time > o.timeRegistered && o.exchange != domain.ExchangeStateWait {
			o.state = domain.OrderStateRegistered
			o.idRegistered = tick.ID
			events = append(events, EventRegistered)
		}
	}

	if o.exchange == domain.ExchangeStateRegistered && !tick.IsSynthetic {
		if price, ok := o.match(tick, exec); ok {
			o.exchange = domain.ExchangeStateExecuted
			o.idExchangeExecuted = tick.ID
			o.priceExchangeExecuted = price
			o.timeExchangeExecuted = tick.Time
			o.timeExecuted = tick.Time + exec.LatencyReceive
		}
	}

	if o.exchange == domain.ExchangeStateExecuted && tick.Time > o.timeExecuted {
		o.idProcessed = tick.ID
		o.timeProcessed = o.timeExecuted
		o.priceExecuted = o.priceExchangeExecuted
		if o.state == domain.OrderStateCancelling {
			o.exchange = domain.ExchangeStateCancelFailed
			events = append(events, EventCancelFailed)
		}
		o.state = domain.OrderStateExecuted
		return append(events, EventExecuted)
	}

	if o.state == domain.OrderStateCancelling {
		if math.IsNaN(o.timeCancel) {
			o.timeCancel = tick.Time
			o.timeExchangeCancel = tick.Time + exec.LatencySend
			o.timeCancelled = o.timeExchangeCancel + exec.LatencyReceive
		}
		if tick.Time > o.timeExchangeCancel && o.exchange == domain.ExchangeStateRegistered {
			o.exchange = domain.ExchangeStateCancelled
		}
		if tick.Time > o.timeCancelled && o.exchange == domain.ExchangeStateCancelled {
			o.state = domain.OrderStateCancelled
			o.idProcessed = tick.ID
			o.timeProcessed = o.timeCancelled
			events = append(events, EventCancelled)
		}
	}

	return events
}

// match reports whether the exchange fills the order on tick and at what price.
func (o *Order) match(tick domain.Tick, exec Execution) (float64, bool) {
	px := tick.Price
	if exec.Mode == domain.ExecutionModeBBO && tick.HasQuote() {
		if o.side == domain.SideBuy {
			px = tick.Ask
		} else {
			px = tick.Bid
		}
	}
	if math.IsNaN(px) {
		return 0, false
	}

	switch o.typ {
	case domain.OrderTypeMarket:
		return px, true

	case domain.OrderTypeLimit:
		if !o.limitCrossed(px, exec.Mode) {
			return 0, false
		}
		if exec.HitMarket && tick.ID == o.idExchangeRegistered {
			return px, true
		}
		return o.price, true

	case domain.OrderTypeStop, domain.OrderTypeTrail:
		if o.activated {
			if exec.ExactStop {
				return o.trigger, true
			}
			return px, true
		}
		if o.typ == domain.OrderTypeTrail {
			o.follow(px)
		}
		if o.stopBreached(px) {
			o.activated = true
		}
		return 0, false
	}
	return 0, false
}

// limitCrossed uses trade-through for trade prices and touch for quotes.
func (o *Order) limitCrossed(px float64, mode domain.ExecutionMode) bool {
	if mode == domain.ExecutionModeBBO {
		if o.side == domain.SideBuy {
			return px <= o.price
		}
		return px >= o.price
	}
	if o.side == domain.SideBuy {
		return px < o.price
	}
	return px > o.price
}

func (o *Order) stopBreached(px float64) bool {
	if o.side == domain.SideBuy {
		return px > o.trigger
	}
	return px < o.trigger
}

// follow moves a trailing trigger toward price, never away from it.
func (o *Order) follow(px float64) {
	if o.side == domain.SideSell {
		if t := px - o.trailOffset; math.IsNaN(o.trigger) || t > o.trigger {
			o.trigger = t
		}
		return
	}
	if t := px + o.trailOffset; math.IsNaN(o.trigger) || t < o.trigger {
		o.trigger = t
	}
}

// Cancel requests cancellation. Only registered non-market orders can be
// cancelled; the request reaches the exchange after the send latency.
func (o *Order) Cancel() error {
	if o.typ == domain.OrderTypeMarket {
		return fmt.Errorf("%w: order %d is a market order", ErrCancelNotAllowed, o.id)
	}
	if o.state != domain.OrderStateRegistered {
		return fmt.Errorf("%w: order %d is %s", ErrCancelNotAllowed, o.id, o.state)
	}
	o.state = domain.OrderStateCancelling
	return nil
}

// Retag changes the handler table key of the order.
func (o *Order) Retag(tag string) { o.tag = tag }

// ID returns the processor-assigned order id.
func (o *Order) ID() int { return o.id }

// TradeID returns the id of the trade the order belongs to.
func (o *Order) TradeID() int { return o.tradeID }

// Side returns the order side.
func (o *Order) Side() domain.Side { return o.side }

// Type returns the order type.
func (o *Order) Type() domain.OrderType { return o.typ }

// Price returns the limit or stop price, NaN for market and trail orders.
func (o *Order) Price() float64 { return o.price }

// TrailOffset returns the trailing distance, zero for non-trail orders.
func (o *Order) TrailOffset() float64 { return o.trailOffset }

// Trigger returns the current stop trigger. It is NaN for a trail order
// until the first tick reaches the exchange.
func (o *Order) Trigger() float64 { return o.trigger }

// Comment returns the free-form comment given at creation.
func (o *Order) Comment() string { return o.comment }

// Tag returns the handler table key.
func (o *Order) Tag() string { return o.tag }

// State returns the client view of the order state.
func (o *Order) State() domain.OrderState { return o.state }

// ExchangeState returns the exchange shadow state.
func (o *Order) ExchangeState() domain.ExchangeState { return o.exchange }

// ExecutionPrice returns the fill price, NaN until the client sees the fill.
func (o *Order) ExecutionPrice() float64 { return o.priceExecuted }

// IDSent returns the id of the tick the order was sent on, -1 before.
func (o *Order) IDSent() int64 { return o.idSent }

// IDProcessed returns the id of the tick that made the order terminal, -1 before.
func (o *Order) IDProcessed() int64 { return o.idProcessed }

// TimeSent returns the send time, NaN before the first update.
func (o *Order) TimeSent() float64 { return o.timeSent }

// TimeRegistered returns the time the client learns of the registration.
func (o *Order) TimeRegistered() float64 { return o.timeRegistered }

// TimeExecuted returns the time the client learns of the fill.
func (o *Order) TimeExecuted() float64 { return o.timeExecuted }

// TimeCancelled returns the time the client learns of the cancel.
func (o *Order) TimeCancelled() float64 { return o.timeCancelled }

// TimeProcessed returns the time the order became terminal for the client.
func (o *Order) TimeProcessed() float64 { return o.timeProcessed }

// IsActivated reports whether a stop or trail order has breached its trigger
// and waits for the next eligible tick to fill.
func (o *Order) IsActivated() bool { return o.activated }

// IsNew reports whether the order has not been registered yet.
func (o *Order) IsNew() bool { return o.state == domain.OrderStateNew }

// IsRegistered reports whether the order rests on the exchange.
func (o *Order) IsRegistered() bool { return o.state == domain.OrderStateRegistered }

// IsExecuted reports whether the client has seen the fill.
func (o *Order) IsExecuted() bool { return o.state == domain.OrderStateExecuted }

// IsCancelled reports whether the client has seen the cancel.
func (o *Order) IsCancelled() bool { return o.state == domain.OrderStateCancelled }

// IsTerminal reports whether the order is executed or cancelled.
func (o *Order) IsTerminal() bool { return o.state.IsTerminal() }

// IsBuy reports whether the order buys.
func (o *Order) IsBuy() bool { return o.side == domain.SideBuy }

// Record returns the order ledger row for o.
func (o *Order) Record(symbol string) domain.OrderRecord {
	return domain.OrderRecord{
		OrderID:        o.id,
		TradeID:        o.tradeID,
		Symbol:         symbol,
		Side:           o.side,
		Type:           o.typ,
		State:          o.state,
		Price:          o.price,
		ExecutionPrice: o.priceExecuted,
		Comment:        o.comment,
		IDSent:         o.idSent,
		TimeSent:       o.timeSent,
		IDProcessed:    o.idProcessed,
		TimeProcessed:  o.timeProcessed,
	}
}
