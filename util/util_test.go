package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.GenerateRandomVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestLevelIsNonNegativeAndMostlyZero(t *testing.T) {
	rng := NewRNG(42)
	levelMult := 1.0 / 2.772588722239781 // 1/ln(16)

	zeroCount := 0
	for i := 0; i < 1000; i++ {
		l := rng.Level(levelMult)
		assert.GreaterOrEqual(t, l, 0)
		if l == 0 {
			zeroCount++
		}
	}
	// Most draws should land at level 0; this is a geometric-like
	// distribution, not a uniform one.
	assert.Greater(t, zeroCount, 500)
}
