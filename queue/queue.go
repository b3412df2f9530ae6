// Package queue provides the binary heap HNSW's search_layer uses for its
// candidate and result sets (spec.md §4.9).
//
// Grounded on hupe1980-vecgo/queue's PriorityQueue, renamed from
// distance-is-priority (lower wins) to score-is-priority (higher wins),
// matching spec.md §4.9's "similarity is the ranking score; higher is
// closer" convention, and keyed by model.LocalID instead of a raw uint32.
package queue

import (
	"container/heap"

	"github.com/raipankaj/KoreDB/model"
)

var _ heap.Interface = (*PriorityQueue)(nil)

// Item is one candidate in a PriorityQueue: a node id and its similarity
// score against the query that produced this heap.
type Item struct {
	Node  model.LocalID
	Score float32
	Index int // maintained by heap.Interface methods
}

// PriorityQueue implements heap.Interface. When Descending is false it is a
// min-heap (Top returns the lowest score); when true it is a max-heap (Top
// returns the highest score).
type PriorityQueue struct {
	Descending bool
	Items      []*Item
}

func (pq *PriorityQueue) Len() int { return len(pq.Items) }

func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.Descending {
		return pq.Items[i].Score > pq.Items[j].Score
	}
	return pq.Items[i].Score < pq.Items[j].Score
}

func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
	pq.Items[i].Index, pq.Items[j].Index = i, j
}

func (pq *PriorityQueue) Push(x any) {
	item, _ := x.(*Item)
	item.Index = len(pq.Items)
	pq.Items = append(pq.Items, item)
}

func (pq *PriorityQueue) Pop() any {
	old := pq.Items
	n := len(old)
	if n == 0 {
		return nil
	}
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.Items = old[:n-1]
	return item
}

// Top returns the heap's top element without removing it.
func (pq *PriorityQueue) Top() *Item {
	if len(pq.Items) == 0 {
		return nil
	}
	return pq.Items[0]
}
