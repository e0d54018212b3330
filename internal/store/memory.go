package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/climate-series/internal/series"
)

var (
	// ErrStoreNotFound is returned when a data type's store was never created.
	ErrStoreNotFound = errors.New("no store for data type")
)

// MemoryStore is a concurrency-safe in-memory implementation of series.Cache.
// It lives as long as the process.
type MemoryStore struct {
	mu sync.RWMutex
	// key: data type alias, value: record value by record key
	data map[string]map[string]float64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]float64),
	}
}

// EnsureSchema creates an empty store for every alias that has none yet.
func (s *MemoryStore) EnsureSchema(ctx context.Context, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alias := range aliases {
		if _, ok := s.data[alias]; !ok {
			s.data[alias] = make(map[string]float64)
		}
	}
	return nil
}

// Count returns the number of records held for dataType.
func (s *MemoryStore) Count(ctx context.Context, dataType string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.data[dataType]
	if !ok {
		return 0, ErrStoreNotFound
	}
	return len(records), nil
}

// BulkInsert stores records for dataType; later duplicates win.
func (s *MemoryStore) BulkInsert(ctx context.Context, dataType string, records []series.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.data[dataType]
	if !ok {
		return ErrStoreNotFound
	}
	for _, r := range records {
		store[r.T] = r.V
	}
	return nil
}

// Query returns the records of dataType with keys inside kr, ordered by key.
func (s *MemoryStore) Query(ctx context.Context, dataType string, kr series.KeyRange) ([]series.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, ok := s.data[dataType]
	if !ok {
		return nil, ErrStoreNotFound
	}

	result := []series.Record{}
	if kr.Empty() {
		return result, nil
	}
	for key, value := range store {
		if kr.Contains(key) {
			result = append(result, series.Record{T: key, V: value})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].T < result[j].T })
	return result, nil
}
