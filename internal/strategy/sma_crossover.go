package strategy

import (
	"tick-backtest/internal/domain"
	"tick-backtest/internal/order"
	"tick-backtest/internal/processor"
)

// position is the exposure a strategy believes it holds.
type position int

const (
	positionFlat position = iota
	positionLong
	positionShort
)

// SMACrossover goes long when the fast moving average of candle closes
// crosses above the slow one and short when it crosses below, reversing an
// existing position with two market orders. Positions are closed at market
// close.
type SMACrossover struct {
	processor.BaseStrategy

	fast    *SMA
	slow    *SMA
	cross   *Crossover
	state   position
	tradeID int
}

var _ processor.Strategy = (*SMACrossover)(nil)

// NewSMACrossover creates the strategy for the given periods in candles.
func NewSMACrossover(fastPeriod, slowPeriod int) (*SMACrossover, error) {
	fast, err := NewSMA(fastPeriod)
	if err != nil {
		return nil, err
	}
	slow, err := NewSMA(slowPeriod)
	if err != nil {
		return nil, err
	}
	return &SMACrossover{
		fast:    fast,
		slow:    slow,
		cross:   NewCrossover(),
		tradeID: 1,
	}, nil
}

// OnCandle updates the averages and trades the crossover.
func (s *SMACrossover) OnCandle(p *processor.Processor, c domain.Candle) error {
	if c.IsEmpty {
		return nil
	}
	s.fast.Add(c.Close)
	s.slow.Add(c.Close)
	if !s.fast.IsFormed() || !s.slow.IsFormed() {
		return nil
	}

	s.cross.Add(s.fast.Value(), s.slow.Value())
	if !p.CanTrade() {
		return nil
	}

	switch {
	case s.cross.IsAbove() && s.state != positionLong:
		if s.state == positionShort {
			if err := s.send(p, domain.SideBuy, "close short"); err != nil {
				return err
			}
			s.tradeID++
			if err := s.send(p, domain.SideBuy, "reverse short"); err != nil {
				return err
			}
		} else if err := s.send(p, domain.SideBuy, "long"); err != nil {
			return err
		}
		s.state = positionLong

	case s.cross.IsBelow() && s.state != positionShort:
		if s.state == positionLong {
			if err := s.send(p, domain.SideSell, "close long"); err != nil {
				return err
			}
			s.tradeID++
			if err := s.send(p, domain.SideSell, "reverse long"); err != nil {
				return err
			}
		} else if err := s.send(p, domain.SideSell, "short"); err != nil {
			return err
		}
		s.state = positionShort
	}
	return nil
}

// OnMarketClose flattens the position.
func (s *SMACrossover) OnMarketClose(p *processor.Processor) error {
	var err error
	switch s.state {
	case positionLong:
		err = s.send(p, domain.SideSell, "close long (EOD)")
	case positionShort:
		err = s.send(p, domain.SideBuy, "close short (EOD)")
	default:
		return nil
	}
	s.tradeID++
	s.state = positionFlat
	return err
}

// OnTick stops tracking the position once the processor stops trading; the
// processor flattens open trades itself.
func (s *SMACrossover) OnTick(p *processor.Processor, _ domain.Tick) error {
	if p.IsStopped() {
		s.state = positionFlat
	}
	return nil
}

// TradeID returns the id the next entry order will use.
func (s *SMACrossover) TradeID() int { return s.tradeID }

func (s *SMACrossover) send(p *processor.Processor, side domain.Side, comment string) error {
	_, err := p.SendOrder(order.Market(side, s.tradeID, comment))
	return err
}
