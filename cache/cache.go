// Package cache provides a small LRU cache of decoded SSTable blocks,
// ported from hupe1980-vecgo/internal/cache's LRUBlockCache (with the
// resource.Controller global-memory accounting dropped — this engine has no
// process-wide memory budget concept, spec.md scopes that out). It is a
// pure read-path accelerator: SPEC_FULL.md §5 documents that it never
// changes what sstable.Reader returns, only how often it has to re-scan.
package cache

import (
	"container/list"
	"sync"
)

// Key identifies a cached block within a segment.
type Key struct {
	SegmentID uint64
	Offset    int64
}

// BlockCache is a byte-oriented cache for immutable SSTable blocks.
type BlockCache interface {
	Get(key Key) ([]byte, bool)
	Set(key Key, b []byte)
}

type entry struct {
	key   Key
	value []byte
}

// LRU implements BlockCache with a bounded byte capacity.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
}

// NewLRU creates a cache bounded to capacity bytes.
func NewLRU(capacity int64) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached block and moves it to the front of the LRU list.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	return nil, false
}

// Set caches b under key, evicting the least-recently-used entries as
// needed to stay within capacity.
func (c *LRU) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry)
		c.size += int64(len(b)) - int64(len(old.value))
		old.value = b
		c.evictList.MoveToFront(el)
		c.evict()
		return
	}

	if int64(len(b)) > c.capacity {
		return
	}

	el := c.evictList.PushFront(&entry{key: key, value: b})
	c.items[key] = el
	c.size += int64(len(b))
	c.evict()
}

func (c *LRU) evict() {
	for c.size > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			return
		}
		c.evictList.Remove(back)
		ent := back.Value.(*entry)
		delete(c.items, ent.key)
		c.size -= int64(len(ent.value))
	}
}

// Size returns the current total cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
