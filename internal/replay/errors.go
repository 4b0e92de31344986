package replay

import "errors"

var (
	// ErrInvalidOrdering is returned when ticks are not in non-decreasing time order.
	ErrInvalidOrdering = errors.New("ticks are not in time order")

	// ErrMissingField is returned when a tick source lacks a required column.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedRow is returned when a tick source row cannot be parsed.
	ErrMalformedRow = errors.New("malformed tick row")
)
