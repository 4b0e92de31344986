package storage

import "context"

// IngestProgress is the last tick persisted for a symbol.
type IngestProgress struct {
	Symbol string
	LastID int64   // id of the last ingested tick
	Time   float64 // time of the last ingested tick
}

// IngestProgressStore persists ingestion checkpoints.
// This enables re-running ingestion over a growing file without duplicating ticks.
type IngestProgressStore interface {
	// GetProgress returns the checkpoint for a symbol.
	// Returns ErrNotFound if nothing has been ingested yet.
	GetProgress(ctx context.Context, symbol string) (*IngestProgress, error)

	// SetProgress saves the checkpoint for a symbol, replacing any previous one.
	SetProgress(ctx context.Context, progress *IngestProgress) error
}
