package bgen

import (
	"sync"

	farm "github.com/dgryski/go-farm"
	"github.com/biogo/store/llrb"
)

// partitionCache memoizes materialized partitions for a Metafile, keyed by
// partition index, evicting the least-recently-used entry once it exceeds
// capacity. Ordering is maintained with an llrb.Tree the same way
// cmd/bio-bam-sort/sorter/sort.go orders its merge leaves by a Compare
// method, here comparing on last-access sequence number rather than sort
// key. Each Metafile has its own cache, so entries are keyed by partition
// index alone; fp (via dgryski/go-farm, as in fusion/kmer_index.go) is a
// hash of the metafile path, used only for Metafile.Fingerprint and not as
// part of any cache key.
type partitionCache struct {
	mu       sync.Mutex
	fp       uint64
	capacity int
	seq      int
	entries  map[uint32]*cacheEntry
	order    llrb.Tree
}

type cacheEntry struct {
	index  uint32
	seq    int
	vars   []VariantMetadata
}

// Compare implements llrb.Comparable, ordering entries by access recency.
func (e *cacheEntry) Compare(other llrb.Comparable) int {
	o := other.(*cacheEntry)
	if e.seq != o.seq {
		return e.seq - o.seq
	}
	return int(e.index) - int(o.index)
}

func newPartitionCache(path string, capacity int) *partitionCache {
	if capacity <= 0 {
		return nil
	}
	return &partitionCache{
		fp:       farm.Hash64([]byte(path)),
		capacity: capacity,
		entries:  make(map[uint32]*cacheEntry),
	}
}

// fingerprint identifies which metafile path this cache was built for, so a
// process juggling several open Metafile values can tell their partition
// caches apart in logs without printing the full path.
func (c *partitionCache) fingerprint() uint64 {
	if c == nil {
		return 0
	}
	return c.fp
}

func (c *partitionCache) get(index uint32) ([]VariantMetadata, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[index]
	if !ok {
		return nil, false
	}
	c.order.Delete(e)
	c.seq++
	e.seq = c.seq
	c.order.Insert(e)
	return e.vars, true
}

func (c *partitionCache) put(index uint32, vars []VariantMetadata) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[index]; ok {
		return
	}
	c.seq++
	e := &cacheEntry{index: index, seq: c.seq, vars: vars}
	c.entries[index] = e
	c.order.Insert(e)
	for len(c.entries) > c.capacity {
		oldest := c.order.Min()
		if oldest == nil {
			break
		}
		oe := oldest.(*cacheEntry)
		delete(c.entries, oe.index)
		c.order.DeleteMin()
	}
}
