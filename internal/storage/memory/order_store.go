package memory

import (
	"context"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

// entryKey addresses one row of a per-symbol ledger within an execution.
type entryKey struct {
	executionID string
	symbol      string
	id          int
}

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	data map[entryKey]domain.OrderRecord
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data: make(map[entryKey]domain.OrderRecord),
	}
}

// InsertBulk adds orders atomically. Fails entire batch on any duplicate.
func (s *OrderStore) InsertBulk(_ context.Context, executionID string, orders []domain.OrderRecord) error {
	if executionID == "" {
		return storage.ErrInvalidInput
	}
	if len(orders) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[entryKey]struct{}, len(orders))
	for _, o := range orders {
		k := entryKey{executionID, o.Symbol, o.OrderID}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, o := range orders {
		s.data[entryKey{executionID, o.Symbol, o.OrderID}] = o
	}
	return nil
}

// GetByExecutionID retrieves orders ordered by (symbol, order_id) ASC.
func (s *OrderStore) GetByExecutionID(_ context.Context, executionID string) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.OrderRecord
	for k, o := range s.data {
		if k.executionID == executionID {
			result = append(result, o)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Symbol != result[j].Symbol {
			return result[i].Symbol < result[j].Symbol
		}
		return result[i].OrderID < result[j].OrderID
	})
	return result, nil
}

var _ storage.OrderStore = (*OrderStore)(nil)
