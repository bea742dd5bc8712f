package stats

import (
	"context"
	"sync"

	"github.com/queryplex/queryplex/pkg/types"
)

// MemoryStore is the in-memory Store implementation.
//
// Characteristics:
//   - Fast: no network calls
//   - Local-only: metrics are not shared across instances
//   - No persistence: metrics reset on process restart
//
// Each (provider, request-type) key carries its own mutex so concurrent
// fan-out recordings for unrelated keys never serialize on a global lock.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryMetric
}

type memoryMetric struct {
	mu     sync.Mutex
	metric Metric
}

// NewMemoryStore creates a new in-memory metrics store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryMetric),
	}
}

// Record folds a call outcome into the ledger under the per-key lock.
func (s *MemoryStore) Record(ctx context.Context, provider, requestType string, result *types.ProviderCallResult) error {
	e := s.getOrCreate(Key(provider, requestType))

	e.mu.Lock()
	fold(&e.metric, result)
	e.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the metric for the key.
func (s *MemoryStore) Snapshot(ctx context.Context, provider, requestType string) (Metric, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[Key(provider, requestType)]
	s.mu.RUnlock()

	if !ok {
		return Metric{}, false, nil
	}

	e.mu.Lock()
	m := e.metric
	e.mu.Unlock()
	return m, true, nil
}

// BestProvider returns the highest-scoring candidate for the request type.
func (s *MemoryStore) BestProvider(ctx context.Context, candidates []string, requestType string) (string, error) {
	metrics := make([]Metric, len(candidates))
	for i, c := range candidates {
		m, _, err := s.Snapshot(ctx, c, requestType)
		if err != nil {
			return "", err
		}
		metrics[i] = m
	}
	return pickBest(candidates, metrics)
}

// Close clears the ledger.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*memoryMetric)
	return nil
}

func (s *MemoryStore) getOrCreate(key string) *memoryMetric {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &memoryMetric{}
	s.entries[key] = e
	return e
}
