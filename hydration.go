package kore

import (
	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/model"
)

// kvHydrationSource implements hnsw.HydrationSource by collecting every
// (id, vector) pair under a collection's vec:<coll>: prefix once, up front,
// then serving it back to the indexer in fixed-size chunks (spec.md §4.9
// Hydration step 1: "chunked batches with periodic yields"). Grounded on the
// same collect-then-process cursor pattern compact.newCursor uses for a
// merge: a single full scan is simpler and cheap enough at this scale, and
// avoids needing a new streaming primitive on Engine.
type kvHydrationSource struct {
	ids     []model.LocalID
	vectors [][]float32
	pos     int
	chunk   int
}

// newHydrationSource scans eng for every vector currently stored under
// coll, assigning each a LocalID via vc so the indexer and VectorSearch
// agree on id mappings from the very first hydrated batch.
func newHydrationSource(eng *engine.Engine, vc *vectorCollection, coll string, chunkSize int) *kvHydrationSource {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	prefix := model.VectorPrefix(coll)
	keys := eng.ScanPrefixKeys(prefix)

	ids := make([]model.LocalID, 0, len(keys))
	vectors := make([][]float32, 0, len(keys))
	for _, key := range keys {
		raw, ok := eng.Get(key)
		if !ok {
			// deleted between the key scan and this read
			continue
		}
		vec, _, ok := model.DecodeVector(raw)
		if !ok {
			continue
		}
		id := string(key[len(prefix):])
		ids = append(ids, vc.assignLocal(id))
		vectors = append(vectors, vec)
	}

	return &kvHydrationSource{ids: ids, vectors: vectors, chunk: chunkSize}
}

// Next implements hnsw.HydrationSource.
func (s *kvHydrationSource) Next() ([]model.LocalID, [][]float32, bool) {
	if s.pos >= len(s.ids) {
		return nil, nil, false
	}
	end := s.pos + s.chunk
	if end > len(s.ids) {
		end = len(s.ids)
	}
	ids, vectors := s.ids[s.pos:end], s.vectors[s.pos:end]
	s.pos = end
	return ids, vectors, true
}
