// Package compact implements the k-way merge compactor, spec.md §4.7: given
// an ordered list of segment readers from oldest to newest, it emits the
// newest surviving version of every key into a single new SSTable, dropping
// tombstones and every stale version along the way.
//
// Grounded on hupe1980-vecgo/engine.Compact's three-phase shape (snapshot
// inputs, do the heavy I/O with no lock held, commit with a lock only to
// swap in the result) — the phase split itself lives in the engine package
// here, since that is where the writer lock is held; this package is the
// pure phase-2 merge.
package compact

import (
	"container/heap"
	"fmt"

	"github.com/raipankaj/KoreDB/codec"
	"github.com/raipankaj/KoreDB/model"
	"github.com/raipankaj/KoreDB/sstable"
)

// Source is a single ascending-ordered input to the merge: a reader plus its
// position in the oldest-to-newest ordering (higher position wins ties).
type Source struct {
	Reader   *sstable.Reader
	Position int
}

// mergeItem is one candidate key currently at the front of some source.
type mergeItem struct {
	key      []byte
	value    []byte
	position int
	srcIndex int
}

// mergeHeap orders by (key ascending, position descending) so that, among
// equal keys, the newest source's record is popped first (spec.md §4.7 step 2).
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if c := codec.Compare(h[i].key, h[j].key); c != 0 {
		return c < 0
	}
	return h[i].position > h[j].position
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// cursor walks one reader's data section in ascending key order via a
// buffered replay of its full scan; readers don't expose a raw iterator, so
// the compactor drives them with a wide-open prefix scan collected once
// into memory-ordered pairs. This is proportional to one input segment; a
// flushed segment is bounded by the engine's flush threshold, but an input
// that an earlier compaction wrote holds every key of that merge.
type cursor struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func newCursor(r *sstable.Reader) *cursor {
	dst := map[string][]byte{}
	r.ScanPrefixInto(nil, dst)
	c := &cursor{keys: make([][]byte, 0, len(dst)), values: make([][]byte, 0, len(dst))}
	for k, v := range dst {
		c.keys = append(c.keys, []byte(k))
		c.values = append(c.values, v)
	}
	sortPairs(c.keys, c.values)
	return c
}

func sortPairs(keys [][]byte, values [][]byte) {
	// insertion sort, run once per compaction input; its cost grows with
	// the square of that input's key count.
	for i := 1; i < len(keys); i++ {
		j := i
		for j > 0 && codec.Compare(keys[j-1], keys[j]) > 0 {
			keys[j-1], keys[j] = keys[j], keys[j-1]
			values[j-1], values[j] = values[j], values[j-1]
			j--
		}
	}
}

func (c *cursor) peek() ([]byte, []byte, bool) {
	if c.pos >= len(c.keys) {
		return nil, nil, false
	}
	return c.keys[c.pos], c.values[c.pos], true
}

func (c *cursor) advance() { c.pos++ }

// mergedSource adapts the merged stream into the sstable.Source interface
// writer.Write consumes, so compaction output goes through the exact same
// on-disk encoding path a flush does.
type mergedSource struct {
	keys   [][]byte
	values [][]byte
}

func (m *mergedSource) Len() int { return len(m.keys) }
func (m *mergedSource) IterAll(fn func(key, value []byte) bool) {
	for i := range m.keys {
		if !fn(m.keys[i], m.values[i]) {
			return
		}
	}
}

// Merge runs the multi-way merge over sources (ordered oldest to newest) and
// writes the result to destPath as a new segment (spec.md §4.7). Tombstones
// and every non-newest version of a key are dropped from the output.
func Merge(sources []Source, destPath string) error {
	cursors := make([]*cursor, len(sources))
	h := &mergeHeap{}
	heap.Init(h)

	for i, s := range sources {
		c := newCursor(s.Reader)
		cursors[i] = c
		if k, v, ok := c.peek(); ok {
			heap.Push(h, mergeItem{key: k, value: v, position: s.Position, srcIndex: i})
		}
	}

	merged := &mergedSource{}
	var lastKey []byte
	haveLast := false

	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)

		if !haveLast || codec.Compare(item.key, lastKey) != 0 {
			if !model.IsTombstone(item.value) {
				merged.keys = append(merged.keys, item.key)
				merged.values = append(merged.values, item.value)
			}
			lastKey = item.key
			haveLast = true
		}

		c := cursors[item.srcIndex]
		c.advance()
		if k, v, ok := c.peek(); ok {
			heap.Push(h, mergeItem{key: k, value: v, position: sources[item.srcIndex].Position, srcIndex: item.srcIndex})
		}
	}

	if err := sstable.Write(merged, destPath); err != nil {
		return fmt.Errorf("compact: write merged segment: %w", err)
	}
	return nil
}
