// Package memtable implements the ordered in-memory buffer every write
// passes through before it reaches a segment (spec.md §4.2).
//
// It is structured the way hupe1980-vecgo/index/memtable keeps its
// mutex-guarded buffer (a single struct, a single lock, append/scan under
// RLock/Lock), but ordered by key with binary-search insert instead of
// append-only, since the engine needs iter_from/iter_all in ascending key
// order. No third-party ordered-map or skip-list library appears anywhere
// in the retrieved example pack's go.mod files, so — following the same
// convention those repos use for their own memtables — this is a hand
// rolled sorted slice rather than an unexercised import.
package memtable

import (
	"sort"
	"sync"

	"github.com/raipankaj/KoreDB/model"
)

type entry struct {
	key   []byte
	value []byte
}

// MemTable is an ordered, mutex-guarded map from byte key to byte value with
// accurate resident-size accounting.
type MemTable struct {
	mu      sync.RWMutex
	entries []entry
	size    int64
}

// New returns an empty MemTable.
func New() *MemTable {
	return &MemTable{}
}

// search returns the index of key, or the insertion point if absent.
func (m *MemTable) search(key []byte) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return compare(m.entries[i].key, key) >= 0
	})
	if i < len(m.entries) && compare(m.entries[i].key, key) == 0 {
		return i, true
	}
	return i, false
}

func compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(a) < len(b) {
		return -1
	}
	if len(a) > len(b) {
		return 1
	}
	return 0
}

// Put inserts or overwrites key with value, updating the resident-size
// counter by |k|+|v| minus the size of any value it replaces.
func (m *MemTable) Put(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)

	i, found := m.search(k)
	if found {
		m.size += int64(len(v)) - int64(len(m.entries[i].value))
		m.entries[i].value = v
		return
	}

	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry{key: k, value: v}
	m.size += int64(len(k)) + int64(len(v))
}

// Get returns the current value for key, including tombstones, and whether
// the key is present at all.
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, found := m.search(key)
	if !found {
		return nil, false
	}
	return append([]byte(nil), m.entries[i].value...), true
}

// SizeBytes returns the tracked resident size.
func (m *MemTable) SizeBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Len returns the number of live entries (including tombstones).
func (m *MemTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IterFrom calls fn for every entry whose key is >= prefix, in ascending
// order, until fn returns false. It does not check whether keys still begin
// with prefix; fn ends the walk by returning false. fn receives read-only
// views; callers that retain them across iterations must copy.
func (m *MemTable) IterFrom(prefix []byte, fn func(key, value []byte) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, _ := m.search(prefix)
	for ; i < len(m.entries); i++ {
		if !fn(m.entries[i].key, m.entries[i].value) {
			return
		}
	}
}

// IterAll calls fn for every entry in ascending key order.
func (m *MemTable) IterAll(fn func(key, value []byte) bool) {
	m.IterFrom(nil, fn)
}

// Clear removes every entry and resets the size counter.
func (m *MemTable) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.size = 0
}

// ScanPrefixInto merges this MemTable's entries beginning with prefix into
// dst, following the tombstone-removes / value-overwrites rule the engine's
// scan_prefix uses to merge MemTable state on top of flushed segments
// (spec.md §4.8). dst must already hold the merged segment state.
func (m *MemTable) ScanPrefixInto(prefix []byte, dst map[string][]byte) {
	m.IterFrom(prefix, func(key, value []byte) bool {
		if !hasPrefix(key, prefix) {
			return false
		}
		k := string(key)
		if model.IsTombstone(value) {
			delete(dst, k)
		} else {
			dst[k] = append([]byte(nil), value...)
		}
		return true
	})
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	return compare(key[:len(prefix)], prefix) == 0
}
