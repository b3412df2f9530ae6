package graph

import (
	"errors"
	"testing"

	"github.com/raipankaj/KoreDB/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCommitAppliesBufferedWrites(t *testing.T) {
	s := newStore(t)

	tx := s.Begin()
	require.NoError(t, tx.PutNode(Node{ID: "u1", Labels: []string{"user"}, Data: []byte("a")}))
	require.NoError(t, tx.PutEdge(Edge{Src: "u1", Type: "FOLLOWS", Dst: "u2"}))
	require.NoError(t, tx.Commit(false))

	_, ok := s.GetNode("u1")
	assert.True(t, ok)
	assert.Equal(t, []string{"u2"}, s.OutboundTargetIDs("u1", "FOLLOWS"))
}

// TestTransactionRollbackDiscardsBuffer is spec.md §8 P12: none of a rolled
// back transaction's buffered mutations become visible.
func TestTransactionRollbackDiscardsBuffer(t *testing.T) {
	s := newStore(t)

	tx := s.Begin()
	require.NoError(t, tx.PutNode(Node{ID: "u1", Data: []byte("a")}))
	require.NoError(t, tx.Rollback())

	_, ok := s.GetNode("u1")
	assert.False(t, ok)
}

func TestTransactionReuseAfterCommitFails(t *testing.T) {
	s := newStore(t)

	tx := s.Begin()
	require.NoError(t, tx.Commit(false))

	err := tx.Put([]byte("k"), []byte("v"))
	assert.True(t, errors.Is(err, engine.ErrInvalidState))
}

func TestTransactionReuseAfterRollbackFails(t *testing.T) {
	s := newStore(t)

	tx := s.Begin()
	require.NoError(t, tx.Rollback())

	err := tx.Commit(false)
	assert.True(t, errors.Is(err, engine.ErrInvalidState))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	s := newStore(t)
	boom := errors.New("boom")

	err := s.WithTransaction(false, func(tx *Transaction) error {
		require.NoError(t, tx.PutNode(Node{ID: "u1", Data: []byte("a")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := s.GetNode("u1")
	assert.False(t, ok)
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	s := newStore(t)

	err := s.WithTransaction(false, func(tx *Transaction) error {
		return tx.PutNode(Node{ID: "u1", Data: []byte("a")})
	})
	require.NoError(t, err)

	_, ok := s.GetNode("u1")
	assert.True(t, ok)
}
