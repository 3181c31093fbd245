package vom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

/*
cache_test.go validates the Cache in isolation from the representative
factory and weak store, using bare fetch/store hooks instrumented with
call counters, since Cache's contract is defined in terms of when it
calls those two hooks rather than in terms of TTL or eviction counts.

TESTING OBJECTIVES

1. Bounded residency: a Cache of size N never holds more than N
   resident entries once eviction pressure has been resolved.
2. LRU ordering: Lookup always leaves its key at the head.
3. Fetch/store wiring: a miss fetches, an eviction stores.
4. Initializing entries are rotated past eviction, never evicted, and
   CacheOverflow is returned once every resident slot is provably
   initializing.
*/

func newTestCache(t *testing.T, size int) (*Cache, *fakeBackingStore) {
	t.Helper()
	backing := newFakeBackingStore()
	c := NewCache(size, backing.fetch, backing.store, nil)
	return c, backing
}

type fakeBackingStore struct {
	data       map[string]rawData
	fetchCalls map[string]int
	storeCalls map[string]int
}

func newFakeBackingStore() *fakeBackingStore {
	return &fakeBackingStore{
		data:       make(map[string]rawData),
		fetchCalls: make(map[string]int),
		storeCalls: make(map[string]int),
	}
}

func (f *fakeBackingStore) fetch(_ context.Context, key string) (rawData, error) {
	f.fetchCalls[key]++
	d, ok := f.data[key]
	if !ok {
		return rawData{}, nil
	}
	cp := make(rawData, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp, nil
}

func (f *fakeBackingStore) store(_ context.Context, key string, data rawData) error {
	f.storeCalls[key]++
	f.data[key] = data
	return nil
}

func TestCacheLookupMissFetchesAndRefreshesHead(t *testing.T) {
	ctx := context.Background()
	c, backing := newTestCache(t, 2)
	backing.data["o+1/1"] = rawData{"count": "7"}

	inner, err := c.Lookup(ctx, "o+1/1")
	require.NoError(t, err)
	require.Equal(t, "7", inner.raw["count"])
	require.Equal(t, 1, backing.fetchCalls["o+1/1"])

	require.Equal(t, "o+1/1", c.lru.Front().Value.(*innerSelf).instanceKey)
}

func TestCacheEvictsLRUTailOnOverflow(t *testing.T) {
	ctx := context.Background()
	c, backing := newTestCache(t, 1)
	backing.data["o+1/1"] = rawData{"n": "1"}
	backing.data["o+1/2"] = rawData{"n": "2"}

	a, err := c.Lookup(ctx, "o+1/1")
	require.NoError(t, err)
	require.True(t, a.isResident())

	// Inserting a second entry over a size-1 cache must evict the
	// first one to storage.
	_, err = c.Lookup(ctx, "o+1/2")
	require.NoError(t, err)

	require.Equal(t, 1, backing.storeCalls["o+1/1"])
	require.False(t, a.isResident())
	require.Equal(t, residencyDetached, a.residency)

	// Re-fetching the evicted key must miss-fetch again.
	b, err := c.Lookup(ctx, "o+1/1")
	require.NoError(t, err)
	require.Equal(t, 2, backing.fetchCalls["o+1/1"])
	require.Equal(t, "1", b.raw["n"])
}

func TestCacheAlternatingEvictionSizeOne(t *testing.T) {
	ctx := context.Background()
	c, backing := newTestCache(t, 1)
	backing.data["o+1/1"] = rawData{"n": "1"}
	backing.data["o+1/2"] = rawData{"n": "2"}

	for i := 0; i < 4; i++ {
		_, err := c.Lookup(ctx, "o+1/1")
		require.NoError(t, err)
		_, err = c.Lookup(ctx, "o+1/2")
		require.NoError(t, err)
	}

	require.LessOrEqual(t, c.Len(), 1)
	require.Greater(t, backing.fetchCalls["o+1/1"], 1)
	require.Greater(t, backing.fetchCalls["o+1/2"], 1)
}

func TestCacheRememberProtectsInitializingTail(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 1)

	initializing := &innerSelf{instanceKey: "o+1/1", residency: residencyInitializing}
	require.NoError(t, c.Remember(ctx, initializing))

	resident := &innerSelf{instanceKey: "o+1/2", residency: residencyResident, raw: rawData{}}
	require.NoError(t, c.Remember(ctx, resident))

	require.True(t, initializing.isInitializing())
	require.Equal(t, 2, c.lru.Len())
}

func TestCacheOverflowWhenEveryResidentIsInitializing(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 2)

	for i := 0; i < 4; i++ {
		inner := &innerSelf{instanceKey: instanceKeyFor(i), residency: residencyInitializing}
		err := c.Remember(ctx, inner)
		if err != nil {
			require.ErrorIs(t, err, ErrCacheOverflow)
			return
		}
	}
	t.Fatal("expected CacheOverflow once every resident slot was initializing")
}

func instanceKeyFor(i int) string {
	return "o+1/" + string(rune('a'+i))
}

func TestCacheStatsTracksHitsMissesAndEvictions(t *testing.T) {
	ctx := context.Background()
	c, backing := newTestCache(t, 1)
	backing.data["o+1/1"] = rawData{"n": "1"}
	backing.data["o+1/2"] = rawData{"n": "2"}

	_, err := c.Lookup(ctx, "o+1/1") // miss
	require.NoError(t, err)
	_, err = c.Lookup(ctx, "o+1/1") // hit
	require.NoError(t, err)
	_, err = c.Lookup(ctx, "o+1/2") // miss, evicts o+1/1
	require.NoError(t, err)

	stats := c.Stats()
	require.Equal(t, uint64(2), stats.Misses)
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Evictions)
}

func TestCacheFlushEvictsEverythingAndStoresOnce(t *testing.T) {
	ctx := context.Background()
	c, backing := newTestCache(t, 10)
	backing.data["o+1/1"] = rawData{"n": "1"}
	backing.data["o+1/2"] = rawData{"n": "2"}

	_, err := c.Lookup(ctx, "o+1/1")
	require.NoError(t, err)
	_, err = c.Lookup(ctx, "o+1/2")
	require.NoError(t, err)

	require.NoError(t, c.Flush(ctx))

	require.Equal(t, 0, c.Len())
	require.Equal(t, 1, backing.storeCalls["o+1/1"])
	require.Equal(t, 1, backing.storeCalls["o+1/2"])
}
