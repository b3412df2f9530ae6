package hnsw

import (
	"testing"

	"github.com/raipankaj/KoreDB/model"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	chunks [][]model.LocalID
	vecs   [][][]float32
	pos    int
}

func (s *fakeSource) Next() ([]model.LocalID, [][]float32, bool) {
	if s.pos >= len(s.chunks) {
		return nil, nil, false
	}
	ids, vecs := s.chunks[s.pos], s.vecs[s.pos]
	s.pos++
	return ids, vecs, true
}

func TestIndexerHydratesThenAppliesLiveWrites(t *testing.T) {
	idx := New(2, DefaultOptions, 1)
	source := &fakeSource{
		chunks: [][]model.LocalID{{1, 2}},
		vecs:   [][][]float32{{{1, 0}, {0, 1}}},
	}

	ix := NewIndexer(idx, nil)
	ix.Start(source)
	ix.Enqueue(3, []float32{0.9, 0.1})
	ix.Drain()

	assert.Equal(t, int64(3), idx.Len())
	ix.Close()
}

func TestIndexerDrainWithNoHydrationSource(t *testing.T) {
	idx := New(2, DefaultOptions, 1)
	ix := NewIndexer(idx, nil)
	ix.Start(nil)
	ix.Enqueue(1, []float32{1, 0})
	ix.Enqueue(2, []float32{0, 1})
	ix.Drain()

	assert.Equal(t, int64(2), idx.Len())
	ix.Close()
}
