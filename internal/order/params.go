package order

import (
	"fmt"
	"math"

	"tick-backtest/internal/domain"
)

// Params describes an order to be sent.
type Params struct {
	Side        domain.Side
	Type        domain.OrderType
	Price       float64 // limit price for LIMIT, trigger for STOP
	TrailOffset float64 // distance of the trigger from the best price for TRAIL
	TradeID     int     // orders sharing a trade id form one trade
	Comment     string
	Tag         string // handler table key
}

// Market returns parameters for a market order.
func Market(side domain.Side, tradeID int, comment string) Params {
	return Params{Side: side, Type: domain.OrderTypeMarket, Price: math.NaN(), TradeID: tradeID, Comment: comment}
}

// Limit returns parameters for a limit order.
func Limit(side domain.Side, price float64, tradeID int, comment string) Params {
	return Params{Side: side, Type: domain.OrderTypeLimit, Price: price, TradeID: tradeID, Comment: comment}
}

// Stop returns parameters for a stop order triggered when price breaches stop.
func Stop(side domain.Side, stop float64, tradeID int, comment string) Params {
	return Params{Side: side, Type: domain.OrderTypeStop, Price: stop, TradeID: tradeID, Comment: comment}
}

// Trail returns parameters for a trailing stop following price at offset.
func Trail(side domain.Side, offset float64, tradeID int, comment string) Params {
	return Params{Side: side, Type: domain.OrderTypeTrail, Price: math.NaN(), TrailOffset: offset, TradeID: tradeID, Comment: comment}
}

// WithTag returns a copy of p carrying the given handler tag.
func (p Params) WithTag(tag string) Params {
	p.Tag = tag
	return p
}

// Validate checks that the parameters describe a fillable order.
func (p Params) Validate() error {
	if p.Side != domain.SideBuy && p.Side != domain.SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, p.Side)
	}

	switch p.Type {
	case domain.OrderTypeMarket:
		return nil
	case domain.OrderTypeLimit, domain.OrderTypeStop:
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return fmt.Errorf("%w: %s order requires a finite price", ErrInvalidOrder, p.Type)
		}
		return nil
	case domain.OrderTypeTrail:
		if !(p.TrailOffset > 0) {
			return fmt.Errorf("%w: trail offset must be positive, got %v", ErrInvalidOrder, p.TrailOffset)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, p.Type)
	}
}
