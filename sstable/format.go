// Package sstable implements the immutable on-disk segment format described
// in spec.md §4.5/§4.6/§6: a memory-mapped, bloom-filtered, sparse-indexed
// sorted run of (key, value) records.
//
// Grounded on hupe1980-vecgo/persistence (format.go's magic/version footer
// idea, checksum.go's CRC32 table, mmap.go/slice_reader_mmap.go's
// mapped-read approach) but rewritten to the exact footer spec.md §6
// mandates (16 bytes, {bloom_offset:u64, version:u32=1, magic:u32=0x4B4F5245})
// rather than the teacher's own FileHeader layout.
package sstable

import "errors"

// Magic identifies a valid segment file footer (spec.md §3).
const Magic uint32 = 0x4B4F5245

// Version is the only supported footer version (spec.md §9 Open Question:
// this spec fixes 16 bytes with an explicit version field, not the 12-byte
// variant some source revisions use).
const Version uint32 = 1

// FooterSize is the fixed footer length in bytes.
const FooterSize = 16

// MinFileSize is the minimum legal segment file length (the footer alone).
const MinFileSize = FooterSize

// SampleRate is how often a key is sampled into the sparse in-memory index
// (spec.md §4.6: "every Nth key, N typically 128-512").
const SampleRate = 128

// Sentinel errors for the open-path verification spec.md §7 describes.
var (
	ErrTooSmall           = errors.New("sstable: file shorter than footer")
	ErrBadMagic           = errors.New("sstable: invalid magic number")
	ErrUnsupportedVersion = errors.New("sstable: unsupported footer version")
	ErrCorruptData        = errors.New("sstable: corrupt data section")
)

// Footer is the fixed 16-byte trailer of every segment file.
type Footer struct {
	BloomOffset uint64
	Version     uint32
	Magic       uint32
}
