package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"tick-backtest/internal/domain"
	"tick-backtest/internal/storage"
)

type seriesKey struct {
	executionID string
	symbol      string
}

// series holds per-(execution, symbol) rows unique and ordered by key.
type series[T any] struct {
	mu   sync.RWMutex
	data map[seriesKey][]T
	key  func(T) float64
}

func newSeries[T any](key func(T) float64) *series[T] {
	return &series[T]{
		data: make(map[seriesKey][]T),
		key:  key,
	}
}

func (s *series[T]) insertBulk(executionID, symbol string, rows []T) error {
	if executionID == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := seriesKey{executionID, symbol}
	existing := s.data[k]

	seen := make(map[float64]struct{}, len(existing)+len(rows))
	for _, r := range existing {
		seen[s.key(r)] = struct{}{}
	}
	for _, r := range rows {
		rk := s.key(r)
		if _, exists := seen[rk]; exists {
			return storage.ErrDuplicateKey
		}
		seen[rk] = struct{}{}
	}

	merged := append(slices.Clone(existing), rows...)
	sort.SliceStable(merged, func(i, j int) bool {
		return s.key(merged[i]) < s.key(merged[j])
	})
	s.data[k] = merged
	return nil
}

func (s *series[T]) get(executionID, symbol string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.data[seriesKey{executionID, symbol}])
}

// DayPerformanceStore is an in-memory implementation of storage.DayPerformanceStore.
type DayPerformanceStore struct {
	rows *series[domain.DayPerformance]
}

// NewDayPerformanceStore creates a new in-memory day performance store.
func NewDayPerformanceStore() *DayPerformanceStore {
	return &DayPerformanceStore{
		rows: newSeries(func(d domain.DayPerformance) float64 { return float64(d.Date) }),
	}
}

// InsertBulk adds rows atomically. Fails entire batch on duplicate date.
func (s *DayPerformanceStore) InsertBulk(_ context.Context, executionID, symbol string, days []domain.DayPerformance) error {
	return s.rows.insertBulk(executionID, symbol, days)
}

// Get retrieves rows for one symbol ordered by date ASC.
func (s *DayPerformanceStore) Get(_ context.Context, executionID, symbol string) ([]domain.DayPerformance, error) {
	return s.rows.get(executionID, symbol), nil
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	rows *series[domain.Candle]
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		rows: newSeries(func(c domain.Candle) float64 { return c.Time }),
	}
}

// InsertBulk adds candles atomically. Fails entire batch on duplicate time.
func (s *CandleStore) InsertBulk(_ context.Context, executionID, symbol string, candles []domain.Candle) error {
	return s.rows.insertBulk(executionID, symbol, candles)
}

// Get retrieves candles for one symbol ordered by time ASC.
func (s *CandleStore) Get(_ context.Context, executionID, symbol string) ([]domain.Candle, error) {
	return s.rows.get(executionID, symbol), nil
}

// EquitySeriesStore is an in-memory implementation of storage.EquitySeriesStore.
type EquitySeriesStore struct {
	rows *series[domain.SeriesPoint]
}

// NewEquitySeriesStore creates a new in-memory equity series store.
func NewEquitySeriesStore() *EquitySeriesStore {
	return &EquitySeriesStore{
		rows: newSeries(func(p domain.SeriesPoint) float64 { return p.Time }),
	}
}

// InsertBulk adds points atomically. Fails entire batch on duplicate time.
func (s *EquitySeriesStore) InsertBulk(_ context.Context, executionID, symbol string, points []domain.SeriesPoint) error {
	return s.rows.insertBulk(executionID, symbol, points)
}

// Get retrieves points for one symbol ordered by time ASC.
func (s *EquitySeriesStore) Get(_ context.Context, executionID, symbol string) ([]domain.SeriesPoint, error) {
	return s.rows.get(executionID, symbol), nil
}

var (
	_ storage.DayPerformanceStore = (*DayPerformanceStore)(nil)
	_ storage.CandleStore         = (*CandleStore)(nil)
	_ storage.EquitySeriesStore   = (*EquitySeriesStore)(nil)
)
