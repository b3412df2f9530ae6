// Package bloom implements the segment-local probabilistic membership
// filter described in spec.md §4.4: a fixed bit array sized for a target
// false-positive rate, populated with a double-hashing scheme over a simple
// polynomial base hash.
//
// Grounded on BuddyAnonymous-kv-engine/internal/probabilistic/bloom — the
// only bloom filter in the retrieved example pack — adapted to the
// {m,k,bits} wire layout and double-hashing derivation spec.md mandates
// instead of that repo's independent seeded hash family.
package bloom

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTruncated is returned by Deserialize when the input is shorter than the
// header claims.
var ErrTruncated = errors.New("bloom: truncated filter data")

// Filter is a fixed-size Bloom filter with m bits and k hash rounds.
type Filter struct {
	m    uint32
	k    uint32
	bits []byte
}

// New sizes a filter for n expected entries at the given target false
// positive rate (e.g. 0.01 for ~1%). For 100k keys at 1% this gives
// m≈958k bits and k=7.
func New(n int, fpRate float64) *Filter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}

	m := optimalM(n, fpRate)
	k := optimalK(n, m)

	return &Filter{
		m:    m,
		k:    k,
		bits: make([]byte, (m+7)/8),
	}
}

func optimalM(n int, fpRate float64) uint32 {
	m := math.Ceil(-1 * float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	if m < 8 {
		m = 8
	}
	return uint32(m)
}

func optimalK(n int, m uint32) uint32 {
	k := math.Round(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return uint32(k)
}

// baseHashes computes the two seed hashes double-hashing derives the k
// probe positions from, using a simple polynomial (Horner) rolling hash
// over the key with two distinct odd multipliers.
func baseHashes(key []byte) (uint64, uint64) {
	var h1, h2 uint64 = 5381, 52711
	for _, b := range key {
		h1 = h1*33 + uint64(b)
		h2 = h2*131 + uint64(b)
	}
	return h1, h2
}

func (f *Filter) positions(key []byte) func(i uint32) uint32 {
	h1, h2 := baseHashes(key)
	return func(i uint32) uint32 {
		return uint32((h1 + uint64(i)*h2) % uint64(f.m))
	}
}

// Add records key's membership.
func (f *Filter) Add(key []byte) {
	pos := f.positions(key)
	for i := uint32(0); i < f.k; i++ {
		p := pos(i)
		f.bits[p/8] |= 1 << (p % 8)
	}
}

// MaybeContains reports whether key may be present. False negatives never
// occur; false positives are possible at the configured rate.
func (f *Filter) MaybeContains(key []byte) bool {
	pos := f.positions(key)
	for i := uint32(0); i < f.k; i++ {
		p := pos(i)
		if f.bits[p/8]&(1<<(p%8)) == 0 {
			return false
		}
	}
	return true
}

// Serialize encodes the filter as {m:u32, k:u32, bits}.
func (f *Filter) Serialize() []byte {
	out := make([]byte, 8+len(f.bits))
	binary.LittleEndian.PutUint32(out[0:4], f.m)
	binary.LittleEndian.PutUint32(out[4:8], f.k)
	copy(out[8:], f.bits)
	return out
}

// Size returns the serialized byte length.
func (f *Filter) Size() int { return 8 + len(f.bits) }

// Deserialize decodes a filter previously produced by Serialize.
func Deserialize(b []byte) (*Filter, error) {
	if len(b) < 8 {
		return nil, ErrTruncated
	}
	m := binary.LittleEndian.Uint32(b[0:4])
	k := binary.LittleEndian.Uint32(b[4:8])
	want := int((m + 7) / 8)
	if len(b[8:]) < want {
		return nil, ErrTruncated
	}
	bits := make([]byte, want)
	copy(bits, b[8:8+want])
	return &Filter{m: m, k: k, bits: bits}, nil
}
