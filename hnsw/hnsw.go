// Package hnsw implements the per-collection approximate nearest-neighbor
// index described in spec.md §4.9: a layered proximity graph searched by
// greedy descent, with cosine similarity as the ranking score (higher is
// closer, the inverse of the teacher's distance convention).
//
// Grounded on hupe1980-vecgo/index/hnsw (formerly internal/hnsw)'s overall
// shape — Options, a nodes collection, Insert/KNNSearch/searchLayer,
// selectNeighboursSimple/Heuristic — generalized from the teacher's
// squared-L2-distance, slice-of-uint32-connections design to spec.md's
// similarity-is-the-score convention, model.LocalID node identities, and
// RoaringBitmap-backed neighbor sets (a real pack dependency with nowhere
// else to live: dense small-integer adjacency sets are exactly its use
// case). The visited set during search uses bits-and-blooms/bitset, the
// teacher's own choice for this in internal/hnsw/compact.go.
package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/raipankaj/KoreDB/metric"
	"github.com/raipankaj/KoreDB/model"
	"github.com/raipankaj/KoreDB/queue"
	"github.com/raipankaj/KoreDB/util"
)

// ErrDimensionMismatch is returned when a vector's length does not match
// the index's configured dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("hnsw: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Options configures an Index (spec.md §4.9).
type Options struct {
	// M is the maximum neighbors kept per node per layer.
	M int
	// EFConstruction bounds the candidate list size while inserting.
	EFConstruction int
	// EFSearch bounds the candidate list size while searching, unless a
	// larger k is requested.
	EFSearch int
}

// DefaultOptions matches spec.md §4.9's stated defaults.
var DefaultOptions = Options{M: 16, EFConstruction: 200, EFSearch: 50}

// node is one indexed vector: its owned vector copy, precomputed magnitude,
// assigned level, and a per-layer neighbor set.
type node struct {
	mu        sync.RWMutex
	vector    []float32
	magnitude float32
	level     int
	neighbors []*roaring.Bitmap
}

func newNode(vector []float32, level int) *node {
	n := &node{
		vector:    vector,
		magnitude: metric.Magnitude(vector),
		level:     level,
		neighbors: make([]*roaring.Bitmap, level+1),
	}
	for i := range n.neighbors {
		n.neighbors[i] = roaring.New()
	}
	return n
}

func (n *node) neighborsAt(layer int) []model.LocalID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if layer >= len(n.neighbors) {
		return nil
	}
	raw := n.neighbors[layer].ToArray()
	out := make([]model.LocalID, len(raw))
	for i, v := range raw {
		out[i] = model.LocalID(v)
	}
	return out
}

func (n *node) addNeighbor(layer int, id model.LocalID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if layer < len(n.neighbors) {
		n.neighbors[layer].Add(uint32(id))
	}
}

func (n *node) setNeighbors(layer int, ids []model.LocalID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if layer >= len(n.neighbors) {
		return
	}
	bm := roaring.New()
	for _, id := range ids {
		bm.Add(uint32(id))
	}
	n.neighbors[layer] = bm
}

func (n *node) neighborCount(layer int) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if layer >= len(n.neighbors) {
		return 0
	}
	return int(n.neighbors[layer].GetCardinality())
}

// Index is a collection's HNSW graph. It is safe for concurrent Search
// calls; spec.md §4.9 restricts concurrent mutation to a single background
// indexer (see Indexer), so Insert itself is not further synchronized
// beyond what the nodes map and per-node locks already provide.
type Index struct {
	dim       int
	opts      Options
	levelMult float64
	rng       *util.RNG

	mu    sync.RWMutex
	nodes map[model.LocalID]*node

	hasEntry  atomic.Bool
	entryNode atomic.Uint32
	maxLevel  atomic.Int32
	size      atomic.Int64
}

// New creates an empty Index for dim-dimensional vectors.
func New(dim int, opts Options, seed int64) *Index {
	if opts.M < 1 {
		opts.M = DefaultOptions.M
	}
	if opts.EFConstruction < 1 {
		opts.EFConstruction = DefaultOptions.EFConstruction
	}
	if opts.EFSearch < 1 {
		opts.EFSearch = DefaultOptions.EFSearch
	}
	return &Index{
		dim:       dim,
		opts:      opts,
		levelMult: 1 / math.Log(float64(opts.M)),
		rng:       util.NewRNG(seed),
		nodes:     make(map[model.LocalID]*node),
	}
}

// Len returns the number of vectors currently indexed.
func (idx *Index) Len() int64 { return idx.size.Load() }

// Dim returns the configured vector dimensionality.
func (idx *Index) Dim() int { return idx.dim }

func (idx *Index) getNode(id model.LocalID) *node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes[id]
}

func (idx *Index) similarity(n *node, q []float32) float32 {
	sim, _ := metric.CosineSimilarityWithMagnitude(n.vector, n.magnitude, q)
	return sim
}

func (idx *Index) similarityBetween(a, b *node) float32 {
	sim, _ := metric.CosineSimilarityWithMagnitude(a.vector, a.magnitude, b.vector)
	return sim
}

// Insert adds id/v to the graph (spec.md §4.9 Insert). Re-inserting an
// existing id creates a second, independent node reachable under the same
// id only via the latest map entry. The Indexer inserts an id again each
// time it is written again (a second VectorInsert of the same id, or a
// write of an id that hydration already inserted); the KV path is
// authoritative for existence and HNSW is never consulted for deletes.
func (idx *Index) Insert(id model.LocalID, v []float32) error {
	if len(v) != idx.dim {
		return &ErrDimensionMismatch{Expected: idx.dim, Actual: len(v)}
	}
	vec := append([]float32(nil), v...)
	level := idx.rng.Level(idx.levelMult)
	n := newNode(vec, level)

	idx.mu.Lock()
	idx.nodes[id] = n
	idx.mu.Unlock()

	if idx.hasEntry.CompareAndSwap(false, true) {
		idx.entryNode.Store(uint32(id))
		idx.maxLevel.Store(int32(level))
		idx.size.Add(1)
		return nil
	}

	current := model.LocalID(idx.entryNode.Load())
	topLevel := int(idx.maxLevel.Load())
	currentSim := idx.similarity(idx.getNode(current), vec)

	for lvl := topLevel; lvl > level; lvl-- {
		improved := true
		for improved {
			improved = false
			for _, nb := range idx.getNode(current).neighborsAt(lvl) {
				nbNode := idx.getNode(nb)
				if nbNode == nil {
					continue
				}
				s := idx.similarity(nbNode, vec)
				if s > currentSim {
					current, currentSim, improved = nb, s, true
				}
			}
		}
	}

	top := level
	if topLevel < top {
		top = topLevel
	}
	for lvl := top; lvl >= 0; lvl-- {
		candidates := idx.searchLayer(vec, current, idx.opts.EFConstruction, lvl)
		if len(candidates) > idx.opts.M {
			candidates = candidates[:idx.opts.M]
		}
		for _, c := range candidates {
			n.neighbors[lvl].Add(uint32(c.Node))
			other := idx.getNode(c.Node)
			if other == nil {
				continue
			}
			other.addNeighbor(lvl, id)
			idx.pruneNeighbors(other, lvl, idx.opts.M)
		}
		if len(candidates) > 0 {
			current = candidates[0].Node
		}
	}

	if level > topLevel {
		idx.entryNode.Store(uint32(id))
		idx.maxLevel.Store(int32(level))
	}
	idx.size.Add(1)
	return nil
}

// pruneNeighbors trims n's neighbor set at layer back to at most m entries,
// keeping the highest-similarity neighbors (spec.md §4.9 Insert step 4b).
func (idx *Index) pruneNeighbors(n *node, layer, m int) {
	ids := n.neighborsAt(layer)
	if len(ids) <= m {
		return
	}
	type scored struct {
		id  model.LocalID
		sim float32
	}
	scoredList := make([]scored, 0, len(ids))
	for _, id := range ids {
		other := idx.getNode(id)
		if other == nil {
			continue
		}
		scoredList = append(scoredList, scored{id, idx.similarityBetween(n, other)})
	}
	for i := 1; i < len(scoredList); i++ {
		j := i
		for j > 0 && scoredList[j-1].sim < scoredList[j].sim {
			scoredList[j-1], scoredList[j] = scoredList[j], scoredList[j-1]
			j--
		}
	}
	if len(scoredList) > m {
		scoredList = scoredList[:m]
	}
	kept := make([]model.LocalID, len(scoredList))
	for i, s := range scoredList {
		kept[i] = s.id
	}
	n.setNeighbors(layer, kept)
}

// searchLayer implements spec.md §4.9's search_layer: a max-heap of
// exploration candidates and a min-heap of at most ef results, both seeded
// with entry, expanded until the candidate heap is empty. Returns the
// result contents sorted by similarity descending.
func (idx *Index) searchLayer(q []float32, entry model.LocalID, ef int, layer int) []queue.Item {
	entryNode := idx.getNode(entry)
	if entryNode == nil {
		return nil
	}
	entrySim := idx.similarity(entryNode, q)

	visited := &bitset.BitSet{}
	visited.Set(uint(entry))

	candidates := &queue.PriorityQueue{Descending: true}
	results := &queue.PriorityQueue{Descending: false}
	heap.Init(candidates)
	heap.Init(results)
	heap.Push(candidates, &queue.Item{Node: entry, Score: entrySim})
	heap.Push(results, &queue.Item{Node: entry, Score: entrySim})

	for candidates.Len() > 0 {
		top := heap.Pop(candidates).(*queue.Item)
		n := idx.getNode(top.Node)
		if n == nil || layer >= len(n.neighbors) {
			continue
		}
		for _, nb := range n.neighborsAt(layer) {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))
			nbNode := idx.getNode(nb)
			if nbNode == nil {
				continue
			}
			sim := idx.similarity(nbNode, q)
			switch {
			case results.Len() < ef:
				heap.Push(results, &queue.Item{Node: nb, Score: sim})
				heap.Push(candidates, &queue.Item{Node: nb, Score: sim})
			case sim > results.Top().Score:
				heap.Pop(results)
				heap.Push(results, &queue.Item{Node: nb, Score: sim})
				heap.Push(candidates, &queue.Item{Node: nb, Score: sim})
			}
		}
	}

	out := make([]queue.Item, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = *heap.Pop(results).(*queue.Item)
	}
	return out
}

// Search returns up to k nearest ids by cosine similarity, descending
// (spec.md §4.9 Search). It returns nil if the index is empty or q's
// dimensionality does not match.
func (idx *Index) Search(q []float32, k int) []queue.Item {
	if !idx.hasEntry.Load() || len(q) != idx.dim || k <= 0 {
		return nil
	}

	current := model.LocalID(idx.entryNode.Load())
	currentSim := idx.similarity(idx.getNode(current), q)
	maxLvl := int(idx.maxLevel.Load())

	for lvl := maxLvl; lvl > 0; lvl-- {
		improved := true
		for improved {
			improved = false
			for _, nb := range idx.getNode(current).neighborsAt(lvl) {
				nbNode := idx.getNode(nb)
				if nbNode == nil {
					continue
				}
				s := idx.similarity(nbNode, q)
				if s > currentSim {
					current, currentSim, improved = nb, s, true
				}
			}
		}
	}

	ef := idx.opts.EFSearch
	if k > ef {
		ef = k
	}
	results := idx.searchLayer(q, current, ef, 0)
	if len(results) > k {
		results = results[:k]
	}
	return results
}
