package storage

import "errors"

// Errors shared by the tick, run and result stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a tick id, execution id or result
	// key is written twice. Recorded executions are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
