package vom

import (
	"container/list"
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

/*
Cache is a bounded LRU over inner selves.

A map[string]*list.Element paired with a *list.List gives O(1) lookup,
O(1) recency updates, and O(1) eviction from the tail. A plain Mutex
(not an RWMutex) is enough: the virtual object manager is
single-threaded and cooperative, so there is never a reader that isn't
also a potential mutator — even a read-only property access can
trigger eviction via ensureState.

Entries are never created bare — Lookup fetches on miss and makeRoom
stores on eviction, via the two hooks supplied at construction.
*/
type Cache struct {
	mu sync.Mutex

	size      int
	liveTable map[string]*list.Element
	lru       *list.List // front = MRU, back = LRU

	fetch func(ctx context.Context, instanceKey string) (rawData, error)
	store func(ctx context.Context, instanceKey string, data rawData) error

	log   *logrus.Logger
	stats statsCounters
}

// NewCache constructs a Cache bounded to size resident entries, using
// fetch on miss and store on eviction.
func NewCache(
	size int,
	fetch func(ctx context.Context, instanceKey string) (rawData, error),
	store func(ctx context.Context, instanceKey string, data rawData) error,
	log *logrus.Logger,
) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{
		size:      size,
		liveTable: make(map[string]*list.Element),
		lru:       list.New(),
		fetch:     fetch,
		store:     store,
		log:       log,
	}
}

// Lookup returns the live inner self for instanceKey, fetching it from
// storage on a miss. A hit refreshes the entry to the head of the LRU
// list (invariant 2: after Lookup returns, k is at lru_head).
func (c *Cache) Lookup(ctx context.Context, instanceKey string) (*innerSelf, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.liveTable[instanceKey]; ok {
		c.refresh(elem)
		c.stats.hit()
		return elem.Value.(*innerSelf), nil
	}
	c.stats.miss()

	data, err := c.fetch(ctx, instanceKey)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: fetch %q", instanceKey)
	}
	c.log.WithField("instance_key", instanceKey).Debug("vom: cache miss, fetched inner self from storage")
	inner := &innerSelf{instanceKey: instanceKey, residency: residencyResident, raw: data}
	if err := c.remember(ctx, inner); err != nil {
		return nil, err
	}
	return inner, nil
}

// Remember asserts that inner is tracked by the cache, inserting it
// under LRU discipline if it is not already present. A no-op if inner
// is already live_table-resident.
func (c *Cache) Remember(ctx context.Context, inner *innerSelf) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remember(ctx, inner)
}

func (c *Cache) remember(ctx context.Context, inner *innerSelf) error {
	if _, ok := c.liveTable[inner.instanceKey]; ok {
		return nil
	}
	if err := c.makeRoom(ctx); err != nil {
		return err
	}
	elem := c.lru.PushFront(inner)
	c.liveTable[inner.instanceKey] = elem
	return nil
}

// refresh moves elem to the head of the LRU list. No-op if elem is
// already the head.
func (c *Cache) refresh(elem *list.Element) {
	if c.lru.Front() == elem {
		return
	}
	c.lru.MoveToFront(elem)
}

// makeRoom evicts tail entries to storage until the live table has
// room for one more entry within size, rotating initializing entries
// past the eviction window instead of evicting them, since their state
// isn't serializable yet. Once every resident entry has been rotated
// without finding one to evict, makeRoom stops and the caller inserts
// over size. If refreshCount exceeds size, more than size entries are
// initializing at once, further progress is impossible and
// CacheOverflow is fatal.
func (c *Cache) makeRoom(ctx context.Context) error {
	refreshCount := 0
	for c.lru.Len() >= c.size {
		tail := c.lru.Back()
		if tail == nil {
			break
		}
		inner := tail.Value.(*innerSelf)

		if inner.isInitializing() {
			c.refresh(tail)
			refreshCount++
			if refreshCount >= c.size {
				c.log.WithFields(logrus.Fields{
					"refresh_count": refreshCount,
					"size":          c.size,
				}).Warn("vom: repeated refresh rotation approaching cache overflow threshold")
			}
			if refreshCount > c.size {
				c.log.WithFields(logrus.Fields{
					"refresh_count": refreshCount,
					"size":          c.size,
				}).Warn("vom: cache overflow, every resident entry is still initializing")
				return ErrCacheOverflow
			}
			if refreshCount >= c.lru.Len() {
				// Every resident entry is initializing; nothing to evict.
				break
			}
			continue
		}

		c.log.WithField("instance_key", inner.instanceKey).Debug("vom: storing inner self to make room")
		if err := c.store(ctx, inner.instanceKey, inner.raw); err != nil {
			return errors.Wrapf(err, "cache: store %q", inner.instanceKey)
		}
		c.log.WithField("instance_key", inner.instanceKey).Debug("vom: evicted inner self")
		inner.raw = nil
		inner.residency = residencyDetached
		delete(c.liveTable, inner.instanceKey)
		c.lru.Remove(tail)
		c.stats.eviction()
	}
	return nil
}

// Flush evicts every resident entry to storage, leaving the cache
// empty: temporarily drop size to zero, run makeRoom, restore it.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	saved := c.size
	c.size = 0
	err := c.makeRoom(ctx)
	c.size = saved
	return err
}

// Len reports the number of currently resident entries. Test helper,
// exported for invariant checks from callers embedding vom.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache's hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	return c.stats.snapshot()
}

// Forget unconditionally drops instanceKey from the cache without
// calling store. Used to roll back a failed MakeNewInstance: a failed
// Initialize or a failed commit must not leave a permanently
// unevictable residencyInitializing zombie occupying a cache slot
// forever.
func (c *Cache) Forget(instanceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.liveTable[instanceKey]
	if !ok {
		return
	}
	delete(c.liveTable, instanceKey)
	c.lru.Remove(elem)
}
