package model

import "fmt"

// Key is an ordered byte sequence. Empty keys are never valid.
type Key = []byte

// Value is a byte sequence. A zero-length Value is the tombstone sentinel.
type Value = []byte

// IsTombstone reports whether v represents a deletion marker.
func IsTombstone(v Value) bool {
	return len(v) == 0
}

// Record is a single (key, value) pair as written to the WAL or an SSTable.
type Record struct {
	Key   Key
	Value Value
}

// Batch is a non-empty ordered list of records applied atomically.
type Batch []Record

// SegmentID is the monotonically increasing identifier assigned to each
// flushed or compacted SSTable.
type SegmentID uint64

// LocalID is a dense, per-collection identifier assigned to vectors fed into
// the HNSW index. It is never exposed outside the hnsw/engine boundary; the
// caller-facing identity of a vector is always its KV key.
type LocalID uint32

// NoLocalID is the zero value meaning "no node".
const NoLocalID LocalID = 0

// SegmentPath renders the canonical filename for a flushed segment.
func SegmentPath(id SegmentID) string {
	return fmt.Sprintf("segment_%d.sst", id)
}

// CompactedPath renders the canonical filename for a compaction output.
func CompactedPath(timestamp int64) string {
	return fmt.Sprintf("compacted_%d.sst", timestamp)
}

// ParseSegmentID extracts the numeric id from a "segment_<n>.sst" filename,
// used by the engine's MANIFEST-less filename-scan fallback on Open to seed
// the segment counter. Any other filename shape (including
// "compacted_<timestamp>.sst") reports ok=false.
func ParseSegmentID(name string) (SegmentID, bool) {
	const prefix, suffix = "segment_", ".sst"
	if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	digits := name[len(prefix) : len(name)-len(suffix)]
	var n uint64
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if len(digits) == 0 {
		return 0, false
	}
	return SegmentID(n), true
}
