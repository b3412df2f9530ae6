package kore

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/hnsw"
	"github.com/raipankaj/KoreDB/model"
)

// vectorCollection pairs one collection's HNSW index and background
// indexer with the bidirectional id mapping spec.md §4.9 implies but never
// names directly: HNSW operates on dense model.LocalID values, while every
// vector's caller-facing identity is the string id it was stored under at
// vec:<coll>:<id>.
type vectorCollection struct {
	idx     *hnsw.Index
	indexer *hnsw.Indexer

	mu        sync.RWMutex
	idToLocal map[string]model.LocalID
	localToID map[model.LocalID]string
	nextLocal model.LocalID
}

func seedFor(coll string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(coll))
	return int64(h.Sum64())
}

func newVectorCollection(coll string, dim int, opts Options) *vectorCollection {
	idx := hnsw.New(dim, opts.HNSW, seedFor(coll))
	return &vectorCollection{
		idx:       idx,
		indexer:   hnsw.NewIndexer(idx, opts.HydrationLimiter),
		idToLocal: make(map[string]model.LocalID),
		localToID: make(map[model.LocalID]string),
	}
}

// assignLocal returns id's existing LocalID, allocating a new one the first
// time id is seen by this process.
func (vc *vectorCollection) assignLocal(id string) model.LocalID {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if local, ok := vc.idToLocal[id]; ok {
		return local
	}
	vc.nextLocal++
	local := vc.nextLocal
	vc.idToLocal[id] = local
	vc.localToID[local] = id
	return local
}

func (vc *vectorCollection) stringID(local model.LocalID) (string, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	id, ok := vc.localToID[local]
	return id, ok
}

// collectionFor returns coll's vectorCollection, creating and hydrating it
// on first access (spec.md §4.9 "On collection open"). dim is taken from
// whichever caller first reaches this collection; a later call with a
// different dim is rejected rather than silently indexing mismatched
// vectors.
func (c *Coordinator) collectionFor(coll string, dim int) (*vectorCollection, error) {
	c.vecMu.Lock()
	defer c.vecMu.Unlock()

	if vc, ok := c.vectors[coll]; ok {
		if vc.idx.Dim() != dim {
			return nil, fmt.Errorf("%w: collection %q indexes dimension %d, got %d",
				engine.ErrVectorDimensionMismatch, coll, vc.idx.Dim(), dim)
		}
		return vc, nil
	}

	vc := newVectorCollection(coll, dim, c.opts)
	c.vectors[coll] = vc
	vc.indexer.Start(newHydrationSource(c.eng, vc, coll, c.opts.HydrationChunkSize))
	return vc, nil
}

// VectorInsert persists vec at vec:<coll>:<id> (the KV store remains
// authoritative, spec.md §3 invariant 6) and enqueues it to the
// collection's background indexer (spec.md §4.9 Insert / Hydration step 2).
func (c *Coordinator) VectorInsert(coll, id string, vec []float32) error {
	if err := model.ValidateComponent(coll); err != nil {
		return err
	}
	if err := model.ValidateComponent(id); err != nil {
		return err
	}
	vc, err := c.collectionFor(coll, len(vec))
	if err != nil {
		return err
	}
	if err := c.eng.Put(model.VectorKey(coll, id), model.EncodeVector(vec)); err != nil {
		return err
	}
	vc.indexer.Enqueue(vc.assignLocal(id), vec)
	return nil
}

// VectorInsertBatch writes every (id, vector) pair in vectors in a single
// atomic engine batch, then enqueues each to the indexer (spec.md §6
// "vector_insert_batch"). All vectors must share the same dimensionality.
func (c *Coordinator) VectorInsertBatch(coll string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := model.ValidateComponent(coll); err != nil {
		return err
	}

	var dim int
	for _, v := range vectors {
		dim = len(v)
		break
	}
	vc, err := c.collectionFor(coll, dim)
	if err != nil {
		return err
	}

	batch := make(model.Batch, 0, len(vectors))
	for id, vec := range vectors {
		if err := model.ValidateComponent(id); err != nil {
			return err
		}
		if len(vec) != dim {
			return fmt.Errorf("%w: batch mixes vector dimensions for collection %q",
				engine.ErrVectorDimensionMismatch, coll)
		}
		batch = append(batch, model.Record{Key: model.VectorKey(coll, id), Value: model.EncodeVector(vec)})
	}
	if err := c.eng.WriteBatch(batch, false); err != nil {
		return err
	}

	for id, vec := range vectors {
		vc.indexer.Enqueue(vc.assignLocal(id), vec)
	}
	return nil
}

// VectorSearch returns up to k nearest vectors to query by cosine
// similarity. If the collection's HNSW graph already holds at least one
// vector it serves the approximate result from HNSW, even while hydration
// or queued writes have not all been applied; otherwise (cold start before
// the first insert, or an empty collection) it falls back
// to the brute-force scan over the KV store (spec.md §4.9 "Search
// behavior"). The KV store, not HNSW, is always consulted for existence.
func (c *Coordinator) VectorSearch(ctx context.Context, coll string, query []float32, k int) ([]engine.VectorHit, error) {
	vc, err := c.collectionFor(coll, len(query))
	if err != nil {
		return nil, err
	}

	if vc.idx.Len() > 0 {
		hits := vc.idx.Search(query, k)
		out := make([]engine.VectorHit, 0, len(hits))
		for _, h := range hits {
			id, ok := vc.stringID(h.Node)
			if !ok {
				continue
			}
			out = append(out, engine.VectorHit{Key: model.VectorKey(coll, id), Score: h.Score})
		}
		return out, nil
	}

	return c.eng.SearchVectors(ctx, model.VectorPrefix(coll), query, k)
}

// VectorDrain blocks until coll's collection has fully hydrated and every
// write enqueued so far has been applied to its HNSW graph (spec.md §4.9's
// drain primitive; spec.md §8 P9 relies on this before asserting an exact
// match). A collection nothing has touched yet in this process has no
// pending hydration or writes, so it is a no-op.
func (c *Coordinator) VectorDrain(coll string) {
	c.vecMu.Lock()
	vc, ok := c.vectors[coll]
	c.vecMu.Unlock()
	if !ok {
		return
	}
	vc.indexer.Drain()
}
