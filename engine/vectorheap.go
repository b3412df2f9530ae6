package engine

import "container/heap"

// vectorHeap is a bounded min-heap over VectorHit keyed by Score, mirroring
// sstable.vectorHeap but folding candidates from every segment plus the
// MemTable tail into one shared top-K accumulator (spec.md §4.8
// search_vectors).
type vectorHeap []VectorHit

func (h vectorHeap) Len() int            { return len(h) }
func (h vectorHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h vectorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *vectorHeap) Push(x interface{}) { *h = append(*h, x.(VectorHit)) }
func (h *vectorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PushItem adds a candidate without regard to the heap's eventual size cap;
// callers only call this while Len() < k.
func (h *vectorHeap) PushItem(hit VectorHit) {
	heap.Push(h, hit)
}

// Worst returns the score of the current weakest candidate. Callers must
// not call this on an empty heap.
func (h *vectorHeap) Worst() float32 {
	return (*h)[0].Score
}

// ReplaceWorst evicts the weakest candidate and inserts hit in its place.
func (h *vectorHeap) ReplaceWorst(hit VectorHit) {
	heap.Pop(h)
	heap.Push(h, hit)
}

// SortedDescending drains the heap into score-descending order.
func (h *vectorHeap) SortedDescending() []VectorHit {
	out := make([]VectorHit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(VectorHit)
	}
	return out
}
