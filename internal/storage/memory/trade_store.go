package memory

import (
	"context"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[entryKey]domain.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[entryKey]domain.Trade),
	}
}

// InsertBulk adds trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, executionID string, trades []domain.Trade) error {
	if executionID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[entryKey]struct{}, len(trades))
	for _, t := range trades {
		k := entryKey{executionID, t.Symbol, t.TradeID}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, t := range trades {
		s.data[entryKey{executionID, t.Symbol, t.TradeID}] = t
	}
	return nil
}

// GetByExecutionID retrieves trades ordered by (symbol, trade_id) ASC.
func (s *TradeStore) GetByExecutionID(_ context.Context, executionID string) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Trade
	for k, t := range s.data {
		if k.executionID == executionID {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Symbol != result[j].Symbol {
			return result[i].Symbol < result[j].Symbol
		}
		return result[i].TradeID < result[j].TradeID
	})
	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
