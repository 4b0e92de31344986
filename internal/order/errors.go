package order

import "errors"

var (
	// ErrInvalidOrder is returned when order parameters are inconsistent with its type.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrCancelNotAllowed is returned when cancelling a market order or an
	// order that is not in REGISTERED state.
	ErrCancelNotAllowed = errors.New("order cannot be cancelled")
)
