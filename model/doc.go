// Package model defines the core value types shared by every layer of the
// storage engine: keys, values, batches, segment identity and the dense
// local ids used by the HNSW index.
//
// None of these types carry behavior beyond simple helpers; they exist so
// that codec, memtable, wal, sstable, compact, manifest, engine, hnsw and
// graph can agree on a single vocabulary without importing each other.
package model
