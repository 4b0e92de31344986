package processor

import "errors"

var (
	// ErrInvalidOrdering is returned when a tick's time precedes the previous tick.
	ErrInvalidOrdering = errors.New("ticks are not in time order")

	// ErrInvalidConfig is returned when processor options are inconsistent.
	ErrInvalidConfig = errors.New("invalid processor config")

	// ErrUnknownSymbol is returned when a multi-symbol tick has no processor.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownOrder is returned when an order id is not live.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrFinalized is returned when feeding a finalized processor.
	ErrFinalized = errors.New("processor is finalized")
)
