package memory

import (
	"context"
	"sync"

	"tick-backtest/internal/storage"
)

// IngestProgressStore is an in-memory implementation of storage.IngestProgressStore.
type IngestProgressStore struct {
	mu       sync.RWMutex
	progress map[string]storage.IngestProgress
}

// NewIngestProgressStore creates a new in-memory ingest progress store.
func NewIngestProgressStore() *IngestProgressStore {
	return &IngestProgressStore{
		progress: make(map[string]storage.IngestProgress),
	}
}

// GetProgress returns the checkpoint for a symbol.
func (s *IngestProgressStore) GetProgress(_ context.Context, symbol string) (*storage.IngestProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// SetProgress saves the checkpoint for a symbol.
func (s *IngestProgressStore) SetProgress(_ context.Context, progress *storage.IngestProgress) error {
	if progress == nil || progress.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progress.Symbol] = *progress
	return nil
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
