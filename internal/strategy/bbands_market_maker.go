package strategy

import (
	"errors"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
	"tick-backtest/internal/processor"
)

// Order tags of BBandsMarketMaker. An order's tag selects its handlers and is
// changed when the role of a live order changes.
const (
	tagLongEnter        = "long enter"
	tagShortEnter       = "short enter"
	tagLongExit         = "long exit"
	tagShortExit        = "short exit"
	tagCloseLongOnFill  = "short enter, closes long"
	tagCloseShortOnFill = "long enter, closes short"
	tagWithdrawn        = "withdrawn (EOD)"
	tagEODClose         = "close (EOD)"
)

type mmState int

const (
	mmInit mmState = iota
	mmFlat
	mmLong
	mmShort
)

// BBandsMarketMaker quotes a buy limit at the lower Bollinger band and a sell
// limit at the upper band. Once one side fills, the opposite quote is moved to
// the middle band to exit. Quotes are re-placed at each candle by cancelling
// them; the cancellation handler quotes again at the new levels. At market
// close the position is exited at market.
type BBandsMarketMaker struct {
	processor.BaseStrategy

	bands    *BBands
	levels   Bands
	state    mmState
	tradeID  int
	buy      *order.Order
	sell     *order.Order
	unwound  []*order.Order
	p        *processor.Processor
	handlers *order.HandlerTable
}

var (
	_ processor.Strategy = (*BBandsMarketMaker)(nil)
	_ processor.Attacher = (*BBandsMarketMaker)(nil)
)

// NewBBandsMarketMaker creates the strategy for bands over n candles, k
// deviations wide.
func NewBBandsMarketMaker(n int, k float64) (*BBandsMarketMaker, error) {
	bands, err := NewBBands(n, k)
	if err != nil {
		return nil, err
	}
	s := &BBandsMarketMaker{
		bands:    bands,
		tradeID:  1,
		handlers: order.NewHandlerTable(),
	}
	s.register()
	return s, nil
}

// Attach binds the strategy to the processor it quotes on.
func (s *BBandsMarketMaker) Attach(p *processor.Processor) { s.p = p }

func (s *BBandsMarketMaker) register() {
	h := s.handlers

	h.On(tagLongEnter, order.EventExecuted, func(*order.Order, order.Event) error {
		s.state = mmLong
		retag(s.sell, tagCloseLongOnFill)
		return nil
	})
	h.On(tagLongEnter, order.EventCancelled, s.quoteLongEnter)

	h.On(tagShortEnter, order.EventExecuted, func(*order.Order, order.Event) error {
		s.state = mmShort
		retag(s.buy, tagCloseShortOnFill)
		return nil
	})
	h.On(tagShortEnter, order.EventCancelled, s.quoteShortEnter)

	h.On(tagLongExit, order.EventExecuted, s.onTradeExit)
	h.On(tagLongExit, order.EventCancelled, s.quoteLongExit)
	h.On(tagCloseLongOnFill, order.EventExecuted, s.onTradeExit)
	h.On(tagCloseLongOnFill, order.EventCancelled, s.quoteLongExit)

	h.On(tagShortExit, order.EventExecuted, s.onTradeExit)
	h.On(tagShortExit, order.EventCancelled, s.quoteShortExit)
	h.On(tagCloseShortOnFill, order.EventExecuted, s.onTradeExit)
	h.On(tagCloseShortOnFill, order.EventCancelled, s.quoteShortExit)

	// market close
	h.On(tagWithdrawn, order.EventRegistered, cancelOnRegistered)
	h.On(tagWithdrawn, order.EventExecuted, func(o *order.Order, _ order.Event) error {
		s.unwound = append(s.unwound, o)
		return nil
	})
}

// OnOrderEvent routes the event by the order's tag.
func (s *BBandsMarketMaker) OnOrderEvent(_ *processor.Processor, o *order.Order, ev order.Event) error {
	return s.handlers.Dispatch(o, ev)
}

// OnCandle refreshes the band levels and starts or re-places quotes.
func (s *BBandsMarketMaker) OnCandle(p *processor.Processor, c domain.Candle) error {
	if c.IsEmpty {
		return nil
	}
	s.bands.Add(c.Close)
	if !s.bands.IsFormed() || !p.CanTrade() {
		return nil
	}
	s.levels = s.bands.Value()

	if s.state == mmInit {
		s.state = mmFlat
		if err := s.quoteLongEnter(nil, ""); err != nil {
			return err
		}
		return s.quoteShortEnter(nil, "")
	}
	p.CancelOrders()
	return nil
}

// OnMarketClose withdraws both quotes and exits the position at market.
// A withdrawn quote that fills anyway is unwound at the next market open.
func (s *BBandsMarketMaker) OnMarketClose(p *processor.Processor) error {
	retag(s.buy, tagWithdrawn)
	cancel(s.buy)
	retag(s.sell, tagWithdrawn)
	cancel(s.sell)

	var err error
	switch s.state {
	case mmLong:
		err = s.closeAtMarket(p, domain.SideSell, s.tradeID, "close long (EOD)")
	case mmShort:
		err = s.closeAtMarket(p, domain.SideBuy, s.tradeID, "close short (EOD)")
	}
	if s.state != mmInit {
		s.tradeID++
	}
	s.state = mmInit
	s.buy, s.sell = nil, nil
	return err
}

// OnMarketOpen unwinds quotes that filled after they were withdrawn.
func (s *BBandsMarketMaker) OnMarketOpen(p *processor.Processor) error {
	for _, o := range s.unwound {
		if err := s.closeAtMarket(p, o.Side().Opposite(), o.TradeID(), "unwind (EOD)"); err != nil {
			return err
		}
	}
	s.unwound = nil
	return nil
}

// TradeID returns the id of the current trade.
func (s *BBandsMarketMaker) TradeID() int { return s.tradeID }

// Levels returns the band levels quoted at the last candle.
func (s *BBandsMarketMaker) Levels() Bands { return s.levels }

func (s *BBandsMarketMaker) quoteLongEnter(*order.Order, order.Event) error {
	o, err := s.quote(domain.SideBuy, s.levels.Lower, "long", tagLongEnter)
	if o != nil {
		s.buy = o
	}
	return err
}

func (s *BBandsMarketMaker) quoteShortEnter(*order.Order, order.Event) error {
	o, err := s.quote(domain.SideSell, s.levels.Upper, "short", tagShortEnter)
	if o != nil {
		s.sell = o
	}
	return err
}

func (s *BBandsMarketMaker) quoteLongExit(*order.Order, order.Event) error {
	o, err := s.quote(domain.SideSell, s.levels.Mid, "close long", tagLongExit)
	if o != nil {
		s.sell = o
	}
	return err
}

func (s *BBandsMarketMaker) quoteShortExit(*order.Order, order.Event) error {
	o, err := s.quote(domain.SideBuy, s.levels.Mid, "close short", tagShortExit)
	if o != nil {
		s.buy = o
	}
	return err
}

func (s *BBandsMarketMaker) quote(side domain.Side, price float64, comment, tag string) (*order.Order, error) {
	return s.p.SendOrder(order.Limit(side, price, s.tradeID, comment).WithTag(tag))
}

func (s *BBandsMarketMaker) onTradeExit(*order.Order, order.Event) error {
	s.state = mmFlat
	s.tradeID++
	if err := s.quoteLongEnter(nil, ""); err != nil {
		return err
	}
	return s.quoteShortEnter(nil, "")
}

func (s *BBandsMarketMaker) closeAtMarket(p *processor.Processor, side domain.Side, tradeID int, comment string) error {
	_, err := p.SendOrder(order.Market(side, tradeID, comment).WithTag(tagEODClose))
	return err
}

func retag(o *order.Order, tag string) {
	if o != nil && !o.IsTerminal() {
		o.Retag(tag)
	}
}

// cancel requests cancellation of a registered quote. Quotes not yet
// registered are cancelled by their EventRegistered handler.
func cancel(o *order.Order) {
	if o != nil && o.IsRegistered() {
		_ = o.Cancel()
	}
}

func cancelOnRegistered(o *order.Order, _ order.Event) error {
	if err := o.Cancel(); err != nil && !errors.Is(err, order.ErrCancelNotAllowed) {
		return err
	}
	return nil
}
