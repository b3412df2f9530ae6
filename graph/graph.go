// Package graph is the thin translation layer spec.md §4.10 describes:
// documents, secondary indices, graph nodes/edges, and traversal primitives,
// all expressed as key encodings over engine.Engine's write_batch/get/
// scan_prefix. It holds no state of its own beyond the per-collection
// secondary-index extractor registry — the engine instance it wraps remains
// the sole source of truth, in the style of hupe1980-vecgo/pk's
// thin-translation-layer-over-the-core approach.
package graph

import (
	"strings"
	"sync"

	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/model"
)

// Extractor derives a secondary-index string from a document's raw bytes.
// ok=false means this document has no value for the index and no index
// record is written.
type Extractor func(data []byte) (value string, ok bool)

// Store is the graph/document façade over one Engine.
type Store struct {
	eng *engine.Engine

	mu      sync.Mutex
	indexes map[string]map[string]Extractor // coll -> name -> extractor
}

// New wraps eng with the document/graph façade.
func New(eng *engine.Engine) *Store {
	return &Store{eng: eng, indexes: make(map[string]map[string]Extractor)}
}

// RegisterDocIndex installs a secondary-index extractor for coll, keyed by
// name (spec.md §4.10: "a per-collection map of name → extractor(bytes) →
// string"). Replaces any prior extractor registered under the same name.
func (s *Store) RegisterDocIndex(coll, name string, fn Extractor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexes[coll] == nil {
		s.indexes[coll] = make(map[string]Extractor)
	}
	s.indexes[coll][name] = fn
}

func validateKeyParts(parts ...string) error {
	for _, p := range parts {
		if err := model.ValidateComponent(p); err != nil {
			return err
		}
	}
	return nil
}

// docIndexRecords reads the current indexes registered for coll and returns
// the additional (idx key, updated id list) records PutDoc must include in
// its batch alongside the primary doc record.
func (s *Store) docIndexRecords(coll, id string, data []byte) []model.Record {
	s.mu.Lock()
	extractors := s.indexes[coll]
	s.mu.Unlock()
	if len(extractors) == 0 {
		return nil
	}

	recs := make([]model.Record, 0, len(extractors))
	for name, extract := range extractors {
		val, ok := extract(data)
		if !ok {
			continue
		}
		idxKey := model.IndexKey(coll, name, val)
		existing, _ := s.eng.Get(idxKey)
		recs = append(recs, model.Record{Key: idxKey, Value: appendID(existing, id)})
	}
	return recs
}

// appendID appends id to the comma-joined list in existing, unless it is
// already present (spec.md §4.10's "comma-joined id list").
func appendID(existing []byte, id string) []byte {
	if len(existing) == 0 {
		return []byte(id)
	}
	for _, part := range strings.Split(string(existing), ",") {
		if part == id {
			return existing
		}
	}
	return append(append(append([]byte(nil), existing...), ','), []byte(id)...)
}

// PutDoc writes data at doc:<coll>:<id> and updates every secondary index
// registered for coll, in a single atomic batch (spec.md §4.10 Documents).
func (s *Store) PutDoc(coll, id string, data []byte) error {
	if err := validateKeyParts(coll, id); err != nil {
		return err
	}
	batch := model.Batch{{Key: model.DocKey(coll, id), Value: data}}
	batch = append(batch, s.docIndexRecords(coll, id, data)...)
	return s.eng.WriteBatch(batch, false)
}

// GetDoc returns the raw bytes stored at doc:<coll>:<id>.
func (s *Store) GetDoc(coll, id string) ([]byte, bool) {
	return s.eng.Get(model.DocKey(coll, id))
}

// DeleteDoc tombstones doc:<coll>:<id>. Any secondary-index entries it
// produced are left as stale markers per spec.md §9's advisory deletion
// semantics; callers relying on an index must post-filter via GetDoc.
func (s *Store) DeleteDoc(coll, id string) error {
	return s.eng.Delete(model.DocKey(coll, id))
}

// ScanDocs returns the documents in coll whose id begins with idPrefix, in
// ascending id order (spec.md §4.10 "Prefix queries for documents").
func (s *Store) ScanDocs(coll, idPrefix string) [][]byte {
	return s.eng.ScanPrefix(model.DocKey(coll, idPrefix))
}

// GetByIndex resolves the ids currently listed at idx:<coll>:<name>:<value>
// (spec.md §4.10's secondary-index read path). The caller is responsible
// for filtering stale matches via GetDoc (spec.md §8 P13).
func (s *Store) GetByIndex(coll, name, value string) []string {
	raw, ok := s.eng.Get(model.IndexKey(coll, name, value))
	if !ok {
		return nil
	}
	return splitIDs(raw)
}

func splitIDs(raw []byte) []string {
	parts := strings.Split(string(raw), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Engine returns the underlying engine, for collaborators (the kore façade,
// tests) that need direct access alongside the graph operations.
func (s *Store) Engine() *engine.Engine { return s.eng }
