// Package util provides small helpers shared by HNSW and its tests: a seeded
// random source for level sampling and for generating vector fixtures.
//
// Grounded on hupe1980-vecgo/util's RNG wrapper around math/rand, extended
// with the level-sampling draw spec.md §4.9 defines.
package util

import "math"
import "math/rand"

// RNG wraps a seeded math/rand source.
type RNG struct {
	rand *rand.Rand
	seed int64
}

// NewRNG creates an RNG seeded with seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec
		seed: seed,
	}
}

// Seed returns the seed this RNG was constructed with.
func (r *RNG) Seed() int64 { return r.seed }

// Level draws a node's HNSW layer: ℓ = ⌊−ln(U)·levelMult⌋ for U∼Uniform(0,1]
// (spec.md §4.9).
func (r *RNG) Level(levelMult float64) int {
	u := r.rand.Float64()
	for u == 0 {
		u = r.rand.Float64()
	}
	return int(math.Floor(-math.Log(u) * levelMult))
}

// GenerateRandomVectors produces num vectors of the given dimensionality,
// used by tests and benchmarks as fixture data.
func (r *RNG) GenerateRandomVectors(num int, dimensions int) [][]float32 {
	vectors := make([][]float32, num)
	for i := range vectors {
		vectors[i] = make([]float32, dimensions)
		for j := range vectors[i] {
			vectors[i][j] = r.rand.Float32()
		}
	}
	return vectors
}
