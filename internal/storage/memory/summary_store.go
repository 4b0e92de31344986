package memory

import (
	"context"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

type summaryKey struct {
	executionID string
	symbol      string
}

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[summaryKey]domain.SymbolSummary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[summaryKey]domain.SymbolSummary),
	}
}

// Insert adds a summary. Returns ErrDuplicateKey if (execution_id, symbol) exists.
func (s *SummaryStore) Insert(_ context.Context, executionID string, sum domain.SymbolSummary) error {
	if executionID == "" || sum.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := summaryKey{executionID, sum.Symbol}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[k] = sum
	return nil
}

// GetByExecutionID retrieves summaries ordered by symbol ASC.
func (s *SummaryStore) GetByExecutionID(_ context.Context, executionID string) ([]domain.SymbolSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SymbolSummary
	for k, sum := range s.data {
		if k.executionID == executionID {
			result = append(result, sum)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
