package hnsw

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/raipankaj/KoreDB/model"
	"golang.org/x/time/rate"
)

// HydrationSource yields every (id, vector) pair already present in the KV
// store under a collection's vector prefix, in chunks, so Indexer.Start can
// cooperate with other work instead of blocking it (spec.md §4.9 Hydration
// step 1). Next returns ok=false once exhausted.
type HydrationSource interface {
	Next() (ids []model.LocalID, vectors [][]float32, ok bool)
}

// write is one live insert handed to the indexer by the write path.
type write struct {
	id     model.LocalID
	vector []float32
}

// writeQueue is an unbounded FIFO (spec.md §4.9 Hydration step 2): unlike a
// buffered channel, Enqueue never blocks regardless of how far behind the
// indexer has fallen.
type writeQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []write
	closed bool
	active bool
}

func newWriteQueue() *writeQueue {
	q := &writeQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *writeQueue) push(w write) {
	q.mu.Lock()
	q.items = append(q.items, w)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *writeQueue) pop() (write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return write{}, false
	}
	w := q.items[0]
	q.items = q.items[1:]
	q.active = true
	return w, true
}

func (q *writeQueue) markIdle() {
	q.mu.Lock()
	q.active = false
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *writeQueue) waitQuiescent() {
	q.mu.Lock()
	for len(q.items) > 0 || q.active {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

func (q *writeQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Indexer is the single background goroutine spec.md §4.9 requires: it
// drains a HydrationSource once on startup, then consumes live writes from
// an unbounded queue for the life of the collection. HNSW state may trail
// the KV store by at most the queue backlog plus one in-progress insert;
// the KV path remains authoritative for existence and is never bypassed by
// a read of HNSW state.
type Indexer struct {
	idx       *Index
	queue     *writeQueue
	limiter   *rate.Limiter
	hydrating atomic.Bool
	wg        sync.WaitGroup
}

// NewIndexer wraps idx with a background indexer. limiter may be nil to
// hydrate at full speed; when set, it paces the hydration scan (not live
// writes) so a large collection's cold-start rebuild doesn't starve other
// engine work.
func NewIndexer(idx *Index, limiter *rate.Limiter) *Indexer {
	return &Indexer{idx: idx, queue: newWriteQueue(), limiter: limiter}
}

// Start launches the background goroutine: hydration first, then the live
// write loop, until Close is called.
func (ix *Indexer) Start(source HydrationSource) {
	if source != nil {
		// Set before the goroutine runs so a Drain right after Start waits.
		ix.hydrating.Store(true)
	}
	ix.wg.Add(1)
	go ix.run(source)
}

func (ix *Indexer) run(source HydrationSource) {
	defer ix.wg.Done()
	ix.hydrate(source)
	for {
		w, ok := ix.queue.pop()
		if !ok {
			return
		}
		_ = ix.idx.Insert(w.id, w.vector)
		ix.queue.markIdle()
	}
}

func (ix *Indexer) hydrate(source HydrationSource) {
	if source == nil {
		return
	}
	ix.hydrating.Store(true)
	defer ix.hydrating.Store(false)

	ctx := context.Background()
	for {
		ids, vectors, ok := source.Next()
		if !ok {
			return
		}
		for i := range ids {
			if ix.limiter != nil {
				_ = ix.limiter.Wait(ctx)
			}
			_ = ix.idx.Insert(ids[i], vectors[i])
		}
	}
}

// Enqueue hands a live write to the background indexer without blocking on
// its progress.
func (ix *Indexer) Enqueue(id model.LocalID, vector []float32) {
	ix.queue.push(write{id: id, vector: vector})
}

// Drain blocks until the hydration scan and every enqueued write have been
// applied (spec.md §4.9's drain primitive: useful for tests and controlled
// shutdown).
func (ix *Indexer) Drain() {
	for ix.hydrating.Load() {
		// hydration runs without holding the queue's condvar; yielding is
		// the simplest correct wait for its completion flag to flip.
		runtime.Gosched()
	}
	ix.queue.waitQuiescent()
}

// Close signals the indexer to stop once its queue drains and waits for its
// goroutine to exit.
func (ix *Indexer) Close() {
	ix.queue.close()
	ix.wg.Wait()
}
