package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// DefaultMaxEntries bounds the in-memory cache when no size is given.
const DefaultMaxEntries = 10000

// defaultCleanupInterval is how often expired entries are swept.
const defaultCleanupInterval = time.Minute

// MemoryCache implements an in-memory LRU cache.
type MemoryCache struct {
	logger     observability.Logger
	metrics    *observability.Metrics
	maxEntries int

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	stopCh    chan struct{}
	closeOnce sync.Once
}

// memoryEntry represents an entry in the memory cache.
type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates an in-memory cache holding at most maxEntries
// items. It starts a background sweep of expired entries; call Close to
// stop it.
func NewMemoryCache(maxEntries int, opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	c := &MemoryCache{
		logger:     o.logger,
		metrics:    o.metrics,
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop(defaultCleanupInterval)

	c.logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries))

	return c
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, c.miss()
	}

	entry := elem.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		c.removeElement(elem)
		return nil, c.miss()
	}

	c.eviction.MoveToFront(elem)
	c.metrics.RecordCacheOperation("get", observability.CacheResultHit)

	return entry.value, nil
}

func (c *MemoryCache) miss() error {
	c.metrics.RecordCacheOperation("get", observability.CacheResultMiss)
	return ErrCacheMiss
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	entry := &memoryEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value = entry
	} else {
		c.items[key] = c.eviction.PushFront(entry)
		for c.eviction.Len() > c.maxEntries {
			c.removeElement(c.eviction.Back())
		}
	}

	c.metrics.RecordCacheOperation("set", observability.CacheResultOK)
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	c.metrics.RecordCacheOperation("delete", observability.CacheResultOK)
	return nil
}

// Close stops the cleanup goroutine and drops all entries.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()
	})
	return nil
}

// removeElement removes an element from the cache.
// Must be called with lock held.
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// cleanup removes expired entries.
func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.logger.Debug("cache cleanup completed",
			observability.Int("removed", removed))
	}
}
