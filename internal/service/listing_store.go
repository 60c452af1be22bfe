package service

import (
	"context"
	"sync"
	"time"
)

type NoopListingResultStore struct{}

func NewNoopListingResultStore() *NoopListingResultStore {
	return &NoopListingResultStore{}
}

func (s *NoopListingResultStore) Generation(context.Context, string) (uint64, error) {
	return 0, nil
}

func (s *NoopListingResultStore) GetWithAge(context.Context, string, string) ([]byte, bool, time.Duration, error) {
	return nil, false, 0, nil
}

func (s *NoopListingResultStore) Set(context.Context, string, string, []byte, time.Duration, uint64) (bool, error) {
	return false, nil
}

func (s *NoopListingResultStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

type storedResult struct {
	payload   []byte
	storedAt  time.Time
	expiresAt time.Time
}

// InMemoryListingResultStore keeps results per entity namespace for a single
// instance. Expired entries are dropped on read and when a namespace grows
// past its limit. Each namespace carries a generation that InvalidateNamespace
// advances; writes made under an older generation are refused.
type InMemoryListingResultStore struct {
	mu          sync.RWMutex
	perSpace    int
	spaces      map[string]map[string]storedResult
	generations map[string]uint64
	now         func() time.Time
}

func NewInMemoryListingResultStore(maxPerNamespace int) *InMemoryListingResultStore {
	return &InMemoryListingResultStore{
		perSpace:    maxPerNamespace,
		spaces:      make(map[string]map[string]storedResult),
		generations: make(map[string]uint64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryListingResultStore) Generation(_ context.Context, namespace string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[namespace], nil
}

func (s *InMemoryListingResultStore) GetWithAge(_ context.Context, namespace, key string) ([]byte, bool, time.Duration, error) {
	now := s.now()
	s.mu.RLock()
	res, ok := s.spaces[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, 0, nil
	}
	if !now.Before(res.expiresAt) {
		s.mu.Lock()
		if space, ok := s.spaces[namespace]; ok {
			delete(space, key)
			if len(space) == 0 {
				delete(s.spaces, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, 0, nil
	}
	return append([]byte(nil), res.payload...), true, max(now.Sub(res.storedAt), 0), nil
}

func (s *InMemoryListingResultStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration, generation uint64) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[namespace] != generation {
		return false, nil
	}
	space, ok := s.spaces[namespace]
	if !ok {
		space = make(map[string]storedResult)
		s.spaces[namespace] = space
	}
	if _, exists := space[key]; !exists && s.perSpace > 0 && len(space) >= s.perSpace {
		pruneExpired(space, now)
		if len(space) >= s.perSpace {
			evictOldest(space)
		}
	}
	space[key] = storedResult{
		payload:   append([]byte(nil), value...),
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return true, nil
}

func (s *InMemoryListingResultStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces, namespace)
	s.generations[namespace]++
	return nil
}

func pruneExpired(space map[string]storedResult, now time.Time) {
	for k, res := range space {
		if !now.Before(res.expiresAt) {
			delete(space, k)
		}
	}
}

func evictOldest(space map[string]storedResult) {
	oldestKey := ""
	var oldest time.Time
	for k, res := range space {
		if oldestKey == "" || res.storedAt.Before(oldest) {
			oldestKey, oldest = k, res.storedAt
		}
	}
	delete(space, oldestKey)
}
