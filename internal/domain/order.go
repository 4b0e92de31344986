package domain

// Side is the direction of an order.
type Side string

// Order sides
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() float64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType determines how an order is filled once registered on the exchange.
type OrderType string

// Order types
const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
	OrderTypeTrail  OrderType = "TRAIL"
)

// OrderState is the client-visible order state.
type OrderState string

// Client order states
const (
	OrderStateNew        OrderState = "NEW"
	OrderStateRegistered OrderState = "REGISTERED"
	OrderStateExecuted   OrderState = "EXECUTED"
	OrderStateCancelling OrderState = "CANCELLING"
	OrderStateCancelled  OrderState = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateExecuted || s == OrderStateCancelled
}

// ExchangeState is the exchange-side shadow state of an order.
type ExchangeState string

// Exchange shadow states
const (
	ExchangeStateWait         ExchangeState = "WAIT"
	ExchangeStateRegistered   ExchangeState = "REGISTERED"
	ExchangeStateExecuted     ExchangeState = "EXECUTED"
	ExchangeStateCancelled    ExchangeState = "CANCELLED"
	ExchangeStateCancelFailed ExchangeState = "CANCEL_FAILED"
)

// ExecutionMode selects the price an order is matched against.
type ExecutionMode string

// Execution modes
const (
	// ExecutionModeTrade matches against last trade price (trade-through).
	ExecutionModeTrade ExecutionMode = "TRADE"
	// ExecutionModeBBO matches against best bid/ask (quote-touch).
	ExecutionModeBBO ExecutionMode = "BBO"
)

// OrderRecord is one row of the order ledger.
type OrderRecord struct {
	OrderID        int
	TradeID        int
	Symbol         string
	Side           Side
	Type           OrderType
	State          OrderState
	Price          float64 // requested limit/stop price (NaN for market)
	ExecutionPrice float64 // NaN unless executed
	Comment        string

	IDSent        int64
	TimeSent      float64
	IDProcessed   int64
	TimeProcessed float64
}
