package deltaglider

import "sync"

// bucketStatsCache holds the last computed snapshot per bucket so ListBuckets
// can answer without walking objects.
type bucketStatsCache struct {
	mu        sync.RWMutex
	snapshots map[string]BucketSnapshot
}

func newBucketStatsCache() *bucketStatsCache {
	return &bucketStatsCache{snapshots: make(map[string]BucketSnapshot)}
}

func (c *bucketStatsCache) get(name string) (BucketSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[name]
	return snap, ok
}

func (c *bucketStatsCache) put(snap BucketSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[snap.Name] = snap
}

func (c *bucketStatsCache) remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, name)
}

// dropMissing evicts snapshots for buckets that no longer exist.
func (c *bucketStatsCache) dropMissing(current []string) {
	alive := make(map[string]struct{}, len(current))
	for _, name := range current {
		alive[name] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.snapshots {
		if _, ok := alive[name]; !ok {
			delete(c.snapshots, name)
		}
	}
}
