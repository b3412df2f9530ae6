package hnsw

import (
	"testing"

	"github.com/raipankaj/KoreDB/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSingleNodeBecomesEntry(t *testing.T) {
	idx := New(3, DefaultOptions, 1)
	require.NoError(t, idx.Insert(1, []float32{1, 0, 0}))
	assert.Equal(t, int64(1), idx.Len())

	results := idx.Search([]float32{1, 0, 0}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, model.LocalID(1), results[0].Node)
}

func TestSearchReturnsClosestByCosineSimilarity(t *testing.T) {
	idx := New(3, Options{M: 8, EFConstruction: 64, EFSearch: 32}, 42)

	vectors := map[model.LocalID][]float32{
		1: {1, 0, 0},
		2: {0, 1, 0},
		3: {0, 0, 1},
		4: {0.95, 0.05, 0},
		5: {-1, 0, 0},
	}
	for id := model.LocalID(1); id <= 5; id++ {
		require.NoError(t, idx.Insert(id, vectors[id]))
	}

	results := idx.Search([]float32{1, 0, 0}, 2)
	require.Len(t, results, 2)

	found := map[model.LocalID]bool{}
	for _, r := range results {
		found[r.Node] = true
	}
	assert.True(t, found[1])
	assert.True(t, found[4])
	assert.False(t, found[5])
}

func TestSearchEmptyIndexReturnsNil(t *testing.T) {
	idx := New(3, DefaultOptions, 1)
	assert.Nil(t, idx.Search([]float32{1, 2, 3}, 5))
}

func TestInsertRejectsWrongDimension(t *testing.T) {
	idx := New(3, DefaultOptions, 1)
	err := idx.Insert(1, []float32{1, 2})
	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestSearchOrdersBySimilarityDescending(t *testing.T) {
	idx := New(2, Options{M: 4, EFConstruction: 32, EFSearch: 16}, 7)
	require.NoError(t, idx.Insert(1, []float32{1, 0}))
	require.NoError(t, idx.Insert(2, []float32{0.7, 0.3}))
	require.NoError(t, idx.Insert(3, []float32{0.5, 0.5}))

	results := idx.Search([]float32{1, 0}, 3)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestStatsReflectsInsertedNodes(t *testing.T) {
	idx := New(2, DefaultOptions, 5)
	require.NoError(t, idx.Insert(1, []float32{1, 0}))
	require.NoError(t, idx.Insert(2, []float32{0, 1}))

	stats := idx.Stats()
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, 2, stats.LevelCounts[0])
}
