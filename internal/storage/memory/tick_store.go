package memory

import (
	"context"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

type tickKey struct {
	symbol string
	id     int64
}

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[tickKey]domain.Tick
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[tickKey]domain.Tick),
	}
}

// InsertBulk adds multiple ticks atomically. Fails entire batch on any duplicate.
func (s *TickStore) InsertBulk(_ context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[tickKey]struct{}, len(ticks))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, t := range ticks {
		if t.Symbol == "" || t.IsSynthetic {
			return storage.ErrInvalidInput
		}
		k := tickKey{t.Symbol, t.ID}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range ticks {
		s.data[tickKey{t.Symbol, t.ID}] = t
	}

	return nil
}

// GetBySymbol retrieves all ticks for a symbol, ordered by (time, id) ASC.
func (s *TickStore) GetBySymbol(_ context.Context, symbol string) ([]domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Tick
	for k, t := range s.data {
		if k.symbol == symbol {
			result = append(result, t)
		}
	}
	sortTicks(result)
	return result, nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(_ context.Context, symbol string, start, end float64) ([]domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Tick
	for k, t := range s.data {
		if k.symbol == symbol && t.Time >= start && t.Time <= end {
			result = append(result, t)
		}
	}
	sortTicks(result)
	return result, nil
}

// Symbols lists stored symbols in ascending order.
func (s *TickStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.data {
		seen[k.symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func sortTicks(ticks []domain.Tick) {
	sort.Slice(ticks, func(i, j int) bool {
		if ticks[i].Time != ticks[j].Time {
			return ticks[i].Time < ticks[j].Time
		}
		return ticks[i].ID < ticks[j].ID
	})
}

var _ storage.TickStore = (*TickStore)(nil)
