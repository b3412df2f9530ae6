package kore

import (
	"sync"

	"github.com/raipankaj/KoreDB/engine"
	"github.com/raipankaj/KoreDB/graph"
	"github.com/raipankaj/KoreDB/model"
)

// Coordinator is the process-wide owned instance spec.md §4.11 describes:
// one engine (already its own single-writer/compaction-busy guarantee,
// spec.md §5), the document/graph façade built on top of it, and one HNSW
// collection per vector-bearing collection name. Collaborators reach the
// engine only through this type rather than holding one of their own.
type Coordinator struct {
	opts  Options
	eng   *engine.Engine
	graph *graph.Store

	vecMu   sync.Mutex
	vectors map[string]*vectorCollection
}

// Open opens the engine at dir and wraps it with the graph and vector
// façades (spec.md §6 "open(dir)").
func Open(dir string, optFns ...Option) (*Coordinator, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	eng, err := engine.Open(dir, opts.Engine...)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		opts:    opts,
		eng:     eng,
		graph:   graph.New(eng),
		vectors: make(map[string]*vectorCollection),
	}, nil
}

// Close stops every live collection's background indexer, then closes the
// underlying engine (spec.md §6 "close()").
func (c *Coordinator) Close() error {
	c.closeVectorCollections()
	return c.eng.Close()
}

// Wipe stops every indexer, wipes the engine's on-disk state, and drops the
// cached HNSW collections so the next vector access rehydrates against the
// now-empty store (spec.md §6 "wipe()").
func (c *Coordinator) Wipe() error {
	c.closeVectorCollections()
	return c.eng.Wipe()
}

func (c *Coordinator) closeVectorCollections() {
	c.vecMu.Lock()
	defer c.vecMu.Unlock()
	for _, vc := range c.vectors {
		vc.indexer.Close()
	}
	c.vectors = make(map[string]*vectorCollection)
}

// Engine returns the underlying engine, for collaborators that need direct
// access beyond this façade.
func (c *Coordinator) Engine() *engine.Engine { return c.eng }

// Graph returns the document/graph façade.
func (c *Coordinator) Graph() *graph.Store { return c.graph }

// Put, Delete, WriteBatch, Get, ScanPrefix, and ScanPrefixKeys delegate
// straight to the engine (spec.md §6 Public API); the Coordinator adds
// nothing on this path beyond owning the instance.
func (c *Coordinator) Put(key, value []byte) error { return c.eng.Put(key, value) }
func (c *Coordinator) Delete(key []byte) error      { return c.eng.Delete(key) }
func (c *Coordinator) WriteBatch(batch model.Batch, urgent bool) error {
	return c.eng.WriteBatch(batch, urgent)
}
func (c *Coordinator) Get(key []byte) ([]byte, bool)        { return c.eng.Get(key) }
func (c *Coordinator) ScanPrefix(prefix []byte) [][]byte    { return c.eng.ScanPrefix(prefix) }
func (c *Coordinator) ScanPrefixKeys(prefix []byte) [][]byte { return c.eng.ScanPrefixKeys(prefix) }

// Document/graph façade, forwarded to the embedded graph.Store so callers
// configuring a Coordinator import only this package.

func (c *Coordinator) RegisterDocIndex(coll, name string, fn graph.Extractor) {
	c.graph.RegisterDocIndex(coll, name, fn)
}
func (c *Coordinator) PutDoc(coll, id string, data []byte) error {
	return c.graph.PutDoc(coll, id, data)
}
func (c *Coordinator) GetDoc(coll, id string) ([]byte, bool) { return c.graph.GetDoc(coll, id) }
func (c *Coordinator) DeleteDoc(coll, id string) error       { return c.graph.DeleteDoc(coll, id) }
func (c *Coordinator) ScanDocs(coll, idPrefix string) [][]byte {
	return c.graph.ScanDocs(coll, idPrefix)
}
func (c *Coordinator) GetByIndex(coll, name, value string) []string {
	return c.graph.GetByIndex(coll, name, value)
}
func (c *Coordinator) PutNode(n graph.Node) error { return c.graph.PutNode(n) }
func (c *Coordinator) GetNode(id string) ([]byte, bool) { return c.graph.GetNode(id) }
func (c *Coordinator) NodesByLabel(label string) []string { return c.graph.NodesByLabel(label) }
func (c *Coordinator) NodesByProperty(label, key, val string) []string {
	return c.graph.NodesByProperty(label, key, val)
}
func (c *Coordinator) PutEdge(e graph.Edge) error { return c.graph.PutEdge(e) }
func (c *Coordinator) RemoveEdge(src, typ, dst string) error {
	return c.graph.RemoveEdge(src, typ, dst)
}
func (c *Coordinator) OutboundTargetIDs(src, typ string) []string {
	return c.graph.OutboundTargetIDs(src, typ)
}
func (c *Coordinator) InboundSourceIDs(dst, typ string) []string {
	return c.graph.InboundSourceIDs(dst, typ)
}

// Transaction starts a new buffered Transaction (spec.md §6
// "transaction(block)"); WithTransaction runs fn against a fresh one,
// committing on success and rolling back on error.
func (c *Coordinator) Transaction() *graph.Transaction { return c.graph.Begin() }
func (c *Coordinator) WithTransaction(urgent bool, fn func(*graph.Transaction) error) error {
	return c.graph.WithTransaction(urgent, fn)
}
