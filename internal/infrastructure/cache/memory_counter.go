// Package cache holds the fixed-window request counters behind rate limiting.
package cache

import (
	"context"
	"sync"
	"time"
)

// Counter counts hits per key inside a fixed window. Incr returns the count
// including this hit and the time left until the window resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// CounterStore is a Counter that owns resources.
type CounterStore interface {
	Counter
	Close() error
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// InMemoryCounterStore implements CounterStore with a map.
// Counts are local to the process.
type InMemoryCounterStore struct {
	mu        sync.Mutex
	entries   map[string]*counterEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCounterStore creates the store and starts a goroutine that
// drops expired windows every cleanupInterval until Close.
func NewInMemoryCounterStore(cleanupInterval time.Duration) *InMemoryCounterStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	store := &InMemoryCounterStore{
		entries:  make(map[string]*counterEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval)

	return store
}

// Incr implements Counter
func (s *InMemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &counterEntry{expiresAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++

	return e.count, e.expiresAt.Sub(now), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryCounterStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryCounterStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryCounterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of tracked windows
func (s *InMemoryCounterStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ CounterStore = (*InMemoryCounterStore)(nil)
