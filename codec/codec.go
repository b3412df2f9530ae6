// Package codec implements the byte-key comparator and the little-endian
// fixed-width codecs every on-disk record in the engine is built from
// (spec.md §4.1). Everything here is pure: no I/O, no allocation beyond the
// output it is asked to produce.
package codec

import (
	"encoding/binary"
	"math"
)

// Compare implements unsigned lexicographic ordering over byte sequences:
// compare byte-by-byte over min(len(a), len(b)); if equal on the common
// prefix, the shorter slice sorts first.
func Compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func Less(a, b []byte) bool { return Compare(a, b) < 0 }

// HasPrefix reports whether key begins with prefix.
func HasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	return Compare(key[:len(prefix)], prefix) == 0
}

// PutUint32 / PutUint64 / PutFloat32 append little-endian fixed-width fields.
// They exist so every caller writes integers and floats the same way instead
// of re-deriving encoding/binary incantations at each call site.

func PutUint32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func PutUint64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func Uint32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }
func Uint64(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }

// PutFloat32 writes the IEEE-754 binary32 little-endian encoding of v.
func PutFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

// Float32 decodes an IEEE-754 binary32 little-endian field.
func Float32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}

// AppendUint32 / AppendUint64 grow dst by the field width and append the
// little-endian encoding, returning the new slice.
func AppendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func AppendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func AppendFloat32(dst []byte, v float32) []byte {
	var b [4]byte
	PutFloat32(b[:], v)
	return append(dst, b[:]...)
}
