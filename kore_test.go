package kore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	c, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenCloseWipe(t *testing.T) {
	c := open(t)

	require.NoError(t, c.Put([]byte("k"), []byte("v")))
	v, ok := c.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	require.NoError(t, c.Wipe())
	_, ok = c.Get([]byte("k"))
	assert.False(t, ok)
}

// TestVectorExactMatchAfterDrain is spec.md §8 P9: after inserting a vector
// and draining, searching for that exact vector returns it first with
// score 1 within 1e-3.
func TestVectorExactMatchAfterDrain(t *testing.T) {
	c := open(t)

	vec := []float32{1, 0, 0}
	require.NoError(t, c.VectorInsert("docs", "a", vec))
	c.VectorDrain("docs")

	hits, err := c.VectorSearch(context.Background(), "docs", vec, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-3)
}

// TestVectorSearchFallsBackToBruteForceBeforeDrain covers the HNSW-cold
// brute-force fallback switch spec.md §4.9 describes: a fresh collection
// with no hydration completed yet still answers correctly via the
// engine's direct scan.
func TestVectorSearchFallsBackToBruteForceBeforeDrain(t *testing.T) {
	c := open(t)

	require.NoError(t, c.VectorInsert("docs", "a", []float32{1, 0}))
	require.NoError(t, c.VectorInsert("docs", "b", []float32{0, 1}))

	hits, err := c.VectorSearch(context.Background(), "docs", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "vec:docs:a", string(hits[0].Key))
}

// TestVectorSearchOrthogonalityScenario is spec.md §8 scenario 5: three
// vectors A=[1,0,0], B=[0,1,0], C=[1,0,0]; searching for A with k=4 must
// rank A and C (identical) each near 1.0 ahead of B near 0.0.
func TestVectorSearchOrthogonalityScenario(t *testing.T) {
	c := open(t)

	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	cc := []float32{1, 0, 0}

	require.NoError(t, c.VectorInsert("vecs", "a", a))
	require.NoError(t, c.VectorInsert("vecs", "b", b))
	require.NoError(t, c.VectorInsert("vecs", "c", cc))
	c.VectorDrain("vecs")

	hits, err := c.VectorSearch(context.Background(), "vecs", a, 4)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	top := map[string]float32{}
	for _, h := range hits {
		top[string(h.Key)] = h.Score
	}
	assert.InDelta(t, 1.0, top["vec:vecs:a"], 1e-3)
	assert.InDelta(t, 1.0, top["vec:vecs:c"], 1e-3)
	assert.InDelta(t, 0.0, top["vec:vecs:b"], 1e-3)
}

// TestVectorSearchScaleInvariance is spec.md §8 P10: scaling a vector by a
// positive constant must not change its cosine similarity ranking.
func TestVectorSearchScaleInvariance(t *testing.T) {
	c := open(t)

	require.NoError(t, c.VectorInsert("vecs", "unit", []float32{1, 0}))
	require.NoError(t, c.VectorInsert("vecs", "scaled", []float32{10, 0}))
	c.VectorDrain("vecs")

	hits, err := c.VectorSearch(context.Background(), "vecs", []float32{2, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-3)
	assert.InDelta(t, 1.0, hits[1].Score, 1e-3)
}

func TestVectorInsertBatch(t *testing.T) {
	c := open(t)

	require.NoError(t, c.VectorInsertBatch("vecs", map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}))
	c.VectorDrain("vecs")

	hits, err := c.VectorSearch(context.Background(), "vecs", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vec:vecs:a", string(hits[0].Key))
}

func TestVectorDimensionMismatchRejected(t *testing.T) {
	c := open(t)

	require.NoError(t, c.VectorInsert("vecs", "a", []float32{1, 0, 0}))
	err := c.VectorInsert("vecs", "b", []float32{1, 0})
	assert.Error(t, err)
}

func TestGraphFacadeForwarding(t *testing.T) {
	c := open(t)

	require.NoError(t, c.PutDoc("users", "u1", []byte("ada")))
	v, ok := c.GetDoc("users", "u1")
	require.True(t, ok)
	assert.Equal(t, "ada", string(v))
}

func TestReopenPersistsVectorsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	c1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c1.VectorInsert("vecs", "a", []float32{1, 0}))
	require.NoError(t, c1.Close())

	c2, err := Open(dir)
	require.NoError(t, err)
	defer c2.Close()

	hits, err := c2.VectorSearch(context.Background(), "vecs", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vec:vecs:a", string(hits[0].Key))
}
