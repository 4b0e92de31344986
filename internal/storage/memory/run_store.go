package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by execution_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a run. Returns ErrDuplicateKey if execution_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if r == nil || r.ExecutionID == "" || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ExecutionID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ExecutionID] = cloneRun(r)
	return nil
}

// GetByExecutionID retrieves a run. Returns ErrNotFound if not exists.
func (s *RunStore) GetByExecutionID(_ context.Context, executionID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[executionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetByRunID retrieves all executions of a run, ordered by started_at ASC.
func (s *RunStore) GetByRunID(_ context.Context, runID string) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunRecord
	for _, r := range s.data {
		if r.RunID == runID {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

func cloneRun(r *domain.RunRecord) *domain.RunRecord {
	c := *r
	c.Symbols = slices.Clone(r.Symbols)
	c.Config = slices.Clone(r.Config)
	return &c
}

var _ storage.RunStore = (*RunStore)(nil)
