package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// maxCASRetries bounds the compare-and-swap loop under contention.
const maxCASRetries = 100

// entry represents a stored counter with expiration.
type entry struct {
	value      int64
	expiration time.Time
}

// expired reports whether the entry is past its expiration at now.
func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// MemoryStore implements Store using process memory. Counters are only
// shared between limiters of the same process.
type MemoryStore struct {
	data    sync.Map
	cleanup *time.Ticker
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewMemoryStore creates a new in-memory store that drops expired
// counters once a minute.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCleanupInterval(time.Minute)
}

// NewMemoryStoreWithCleanupInterval creates a new in-memory store with a
// custom cleanup interval.
func NewMemoryStoreWithCleanupInterval(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		cleanup: time.NewTicker(interval),
		done:    make(chan struct{}),
	}

	go s.startCleanup()

	return s
}

// IncrementWithExpiry implements Store.
func (s *MemoryStore) IncrementWithExpiry(
	ctx context.Context,
	key string,
	delta int64,
	expiration time.Duration,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()
	var exp time.Time
	if expiration > 0 {
		exp = now.Add(expiration)
	}

	for retries := 0; retries < maxCASRetries; retries++ {
		value, ok := s.data.Load(key)
		if !ok {
			fresh := &entry{value: delta, expiration: exp}
			actual, loaded := s.data.LoadOrStore(key, fresh)
			if !loaded {
				return delta, nil
			}
			value = actual
		}

		e := value.(*entry)

		if e.expired(now) {
			fresh := &entry{value: delta, expiration: exp}
			if s.data.CompareAndSwap(key, e, fresh) {
				return delta, nil
			}
			continue
		}

		next := &entry{value: e.value + delta, expiration: e.expiration}
		if s.data.CompareAndSwap(key, e, next) {
			return next.value, nil
		}
	}

	return 0, fmt.Errorf("increment with expiry failed: max retries (%d) exceeded", maxCASRetries)
}

// Close implements Store. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.cleanup.Stop()
	close(s.done)

	return nil
}

// startCleanup periodically removes expired entries.
func (s *MemoryStore) startCleanup() {
	for {
		select {
		case <-s.cleanup.C:
			s.cleanupExpired()
		case <-s.done:
			return
		}
	}
}

// cleanupExpired removes all expired entries.
func (s *MemoryStore) cleanupExpired() {
	now := time.Now()

	s.data.Range(func(key, value any) bool {
		if value.(*entry).expired(now) {
			s.data.CompareAndDelete(key, value)
		}
		return true
	})
}

// Size returns the number of entries in the store.
func (s *MemoryStore) Size() int {
	count := 0
	s.data.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
