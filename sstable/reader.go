package sstable

import (
	"container/heap"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/raipankaj/KoreDB/bloom"
	"github.com/raipankaj/KoreDB/cache"
	"github.com/raipankaj/KoreDB/codec"
	"github.com/raipankaj/KoreDB/model"
	"golang.org/x/sys/unix"
)

// sample is one entry of the sparse in-memory index: the key found at
// byteOffset within the data section (spec.md §4.6).
type sample struct {
	key    []byte
	offset int64
}

// Reader is an open, memory-mapped segment file. It is immutable and safe
// for concurrent use by multiple goroutines once opened.
type Reader struct {
	id       model.SegmentID
	path     string
	f        *os.File
	data     []byte // mmap of the whole file
	dataEnd  int64  // length of the data section (== bloom section's offset)
	filter   *bloom.Filter
	index    []sample
	blockCache cache.BlockCache
}

// Open memory-maps path, verifies its footer, loads the bloom filter and
// builds the sparse index by a single linear scan of the data section
// (spec.md §4.6).
func Open(id model.SegmentID, path string, blockCache cache.BlockCache) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: stat %s: %w", path, err)
	}
	size := info.Size()
	if size < MinFileSize {
		f.Close()
		return nil, ErrTooSmall
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: mmap %s: %w", path, err)
	}

	footer := data[size-FooterSize:]
	magic := codec.Uint32(footer[12:16])
	if magic != Magic {
		unix.Munmap(data)
		f.Close()
		return nil, ErrBadMagic
	}
	version := codec.Uint32(footer[8:12])
	if version != Version {
		unix.Munmap(data)
		f.Close()
		return nil, ErrUnsupportedVersion
	}
	bloomOffset := codec.Uint64(footer[0:8])
	if int64(bloomOffset) < 0 || int64(bloomOffset) > size-FooterSize {
		unix.Munmap(data)
		f.Close()
		return nil, ErrCorruptData
	}

	filter, err := bloom.Deserialize(data[bloomOffset : size-FooterSize])
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, fmt.Errorf("sstable: %s: %w", path, err)
	}

	r := &Reader{
		id:         id,
		path:       path,
		f:          f,
		data:       data,
		dataEnd:    int64(bloomOffset),
		filter:     filter,
		blockCache: blockCache,
	}
	if err := r.buildIndex(); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}
	return r, nil
}

// buildIndex performs the one linear pass over the data section spec.md
// §4.6 describes, sampling every SampleRate-th key into the sparse index.
func (r *Reader) buildIndex() error {
	var off int64
	n := 0
	for off < r.dataEnd {
		if off+8 > r.dataEnd {
			return ErrCorruptData
		}
		hdr := r.data[off : off+8]
		keySize := int64(codec.Uint32(hdr[0:4]))
		valSize := int64(codec.Uint32(hdr[4:8]))
		recStart := off + 8
		if recStart+keySize+valSize > r.dataEnd {
			return ErrCorruptData
		}
		if n%SampleRate == 0 {
			key := r.data[recStart : recStart+keySize]
			r.index = append(r.index, sample{key: key, offset: off})
		}
		off = recStart + keySize + valSize
		n++
	}
	return nil
}

// Close unmaps the file and releases its descriptor.
func (r *Reader) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		r.f.Close()
		return fmt.Errorf("sstable: munmap %s: %w", r.path, err)
	}
	return r.f.Close()
}

// ID returns the segment identifier this reader serves.
func (r *Reader) ID() model.SegmentID { return r.id }

// blockEnd returns the end offset of the block beginning at start: the next
// sparse-index sample's offset, or the end of the data section if start
// falls in the last block.
func (r *Reader) blockEnd(start int64) int64 {
	i := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].offset > start
	})
	if i < len(r.index) {
		return r.index[i].offset
	}
	return r.dataEnd
}

// getBlock returns the bytes of the data section between two sparse-index
// sample boundaries, going through blockCache so a hot region is copied out
// of the mmap once rather than re-read on every lookup that lands in it
// (spec.md's cache is a pure read-path accelerator; it never changes what a
// scan finds, only how often the mmap is touched to find it).
func (r *Reader) getBlock(start int64) []byte {
	end := r.blockEnd(start)
	key := cache.Key{SegmentID: uint64(r.id), Offset: start}
	if r.blockCache != nil {
		if b, ok := r.blockCache.Get(key); ok {
			return b
		}
	}
	b := append([]byte(nil), r.data[start:end]...)
	if r.blockCache != nil {
		r.blockCache.Set(key, b)
	}
	return b
}

// floorIndex returns the index of the last sample whose key is <= target, or
// -1 if target sorts before every sample.
func (r *Reader) floorIndex(target []byte) int {
	i := sort.Search(len(r.index), func(i int) bool {
		return codec.Compare(r.index[i].key, target) > 0
	})
	return i - 1
}

// Find looks up key, returning its value and true if present (including
// tombstone values — callers interpret those), or (nil, false) if absent.
// The bloom filter short-circuits segments that cannot contain key.
func (r *Reader) Find(key []byte) ([]byte, bool) {
	if !r.filter.MaybeContains(key) {
		return nil, false
	}

	start := int64(0)
	if fi := r.floorIndex(key); fi >= 0 {
		start = r.index[fi].offset
	}

	for blockStart := start; blockStart < r.dataEnd; blockStart = r.blockEnd(blockStart) {
		block := r.getBlock(blockStart)
		off := int64(0)
		for off < int64(len(block)) {
			hdr := block[off : off+8]
			keySize := int64(codec.Uint32(hdr[0:4]))
			valSize := int64(codec.Uint32(hdr[4:8]))
			recStart := off + 8
			k := block[recStart : recStart+keySize]
			v := block[recStart+keySize : recStart+keySize+valSize]

			cmp := codec.Compare(k, key)
			if cmp == 0 {
				return append([]byte(nil), v...), true
			}
			if cmp > 0 {
				return nil, false
			}
			off = recStart + keySize + valSize
		}
	}
	return nil, false
}

// ScanPrefixInto merges every (key, value) beginning with prefix into dst,
// following the same tombstone-removes / value-overwrites merge rule
// memtable.ScanPrefixInto uses, so callers can layer a segment's state
// underneath newer segments and the active MemTable (spec.md §4.8).
func (r *Reader) ScanPrefixInto(prefix []byte, dst map[string][]byte) {
	start := int64(0)
	if fi := r.floorIndex(prefix); fi >= 0 {
		start = r.index[fi].offset
	}

	off := start
	for off < r.dataEnd {
		hdr := r.data[off : off+8]
		keySize := int64(codec.Uint32(hdr[0:4]))
		valSize := int64(codec.Uint32(hdr[4:8]))
		recStart := off + 8
		k := r.data[recStart : recStart+keySize]

		if codec.Compare(k, prefix) > 0 && !codec.HasPrefix(k, prefix) {
			return
		}
		if codec.HasPrefix(k, prefix) {
			v := r.data[recStart+keySize : recStart+keySize+valSize]
			ks := string(k)
			if model.IsTombstone(v) {
				delete(dst, ks)
			} else {
				dst[ks] = append([]byte(nil), v...)
			}
		}
		off = recStart + keySize + valSize
	}
}

// VectorHit is one candidate returned by FindTopVectors.
type VectorHit struct {
	Key        []byte
	Value      []byte
	Similarity float32
}

type vectorHeap []VectorHit

func (h vectorHeap) Len() int            { return len(h) }
func (h vectorHeap) Less(i, j int) bool  { return h[i].Similarity < h[j].Similarity }
func (h vectorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *vectorHeap) Push(x interface{}) { *h = append(*h, x.(VectorHit)) }
func (h *vectorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FindTopVectors scans the whole data section under prefix, decodes each
// value as {stored_magnitude:f32_le, v0..v_{d-1}:f32_le}, and returns the k
// highest-cosine-similarity hits in descending similarity order (spec.md
// §4.9: higher score means closer, the inverse of a distance metric).
// Tombstones and zero-magnitude vectors are skipped.
func (r *Reader) FindTopVectors(prefix []byte, query []float32, k int) []VectorHit {
	if k <= 0 {
		return nil
	}
	h := &vectorHeap{}
	heap.Init(h)

	start := int64(0)
	if fi := r.floorIndex(prefix); fi >= 0 {
		start = r.index[fi].offset
	}

	off := start
	for off < r.dataEnd {
		hdr := r.data[off : off+8]
		keySize := int64(codec.Uint32(hdr[0:4]))
		valSize := int64(codec.Uint32(hdr[4:8]))
		recStart := off + 8
		k2 := r.data[recStart : recStart+keySize]

		if codec.Compare(k2, prefix) > 0 && !codec.HasPrefix(k2, prefix) {
			break
		}
		if codec.HasPrefix(k2, prefix) {
			v := r.data[recStart+keySize : recStart+keySize+valSize]
			if !model.IsTombstone(v) {
				if sim, ok := cosineSimilarity(query, v); ok {
					hit := VectorHit{
						Key:        append([]byte(nil), k2...),
						Value:      append([]byte(nil), v...),
						Similarity: sim,
					}
					if h.Len() < k {
						heap.Push(h, hit)
					} else if (*h)[0].Similarity < sim {
						heap.Pop(h)
						heap.Push(h, hit)
					}
				}
			}
		}
		off = recStart + keySize + valSize
	}

	out := make([]VectorHit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(VectorHit)
	}
	return out
}

// cosineSimilarity decodes raw as {stored_magnitude:f32_le, floats…} and
// scores it against query using the stored magnitude rather than
// recomputing it (spec.md §9: some source paths recompute this, but the
// on-disk layout fixes a leading magnitude field that readers must trust).
// ok is false for length mismatches or a zero magnitude on either side,
// either of which spec.md §4.9 treats as unscoreable rather than an error.
func cosineSimilarity(query []float32, raw []byte) (float32, bool) {
	if len(raw) < 4 || (len(raw)-4)%4 != 0 || (len(raw)-4)/4 != len(query) {
		return 0, false
	}
	storedMag := float64(codec.Float32(raw[0:4]))
	if storedMag == 0 {
		return 0, false
	}
	var dot, qm float64
	for i, q := range query {
		v := codec.Float32(raw[4+i*4 : 4+i*4+4])
		dot += float64(q) * float64(v)
		qm += float64(q) * float64(q)
	}
	if qm == 0 {
		return 0, false
	}
	return float32(dot / (math.Sqrt(qm) * storedMag)), true
}
