package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetNode(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutNode(Node{
		ID:     "u1",
		Labels: []string{"user"},
		Data:   []byte("ada"),
	}))

	data, ok := s.GetNode("u1")
	require.True(t, ok)
	assert.Equal(t, "ada", string(data))
}

func TestNodesByLabel(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutNode(Node{ID: "u1", Labels: []string{"user"}, Data: []byte("a")}))
	require.NoError(t, s.PutNode(Node{ID: "u2", Labels: []string{"user"}, Data: []byte("b")}))
	require.NoError(t, s.PutNode(Node{ID: "p1", Labels: []string{"post"}, Data: []byte("c")}))

	assert.ElementsMatch(t, []string{"u1", "u2"}, s.NodesByLabel("user"))
	assert.ElementsMatch(t, []string{"p1"}, s.NodesByLabel("post"))
}

func TestNodesByProperty(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutNode(Node{
		ID:         "u1",
		Labels:     []string{"user"},
		Properties: map[string]string{"city": "london"},
		Data:       []byte("a"),
	}))
	require.NoError(t, s.PutNode(Node{
		ID:         "u2",
		Labels:     []string{"user"},
		Properties: map[string]string{"city": "paris"},
		Data:       []byte("b"),
	}))

	assert.Equal(t, []string{"u1"}, s.NodesByProperty("user", "city", "london"))
}

// TestBidirectionalEdges exercises spec.md §8 P11: an edge is visible from
// both its outbound and inbound index.
func TestBidirectionalEdges(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutEdge(Edge{Src: "u1", Type: "FOLLOWS", Dst: "u2", Data: []byte("e")}))

	assert.Equal(t, []string{"u2"}, s.OutboundTargetIDs("u1", "FOLLOWS"))
	assert.Equal(t, []string{"u1"}, s.InboundSourceIDs("u2", "FOLLOWS"))
}

// TestTwoHopTraversal is spec.md §8 scenario 6: u1-FOLLOWS->u2-FOLLOWS->u3
// should resolve to exactly {u3} from u1's two-hop outbound neighborhood.
func TestTwoHopTraversal(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutEdge(Edge{Src: "u1", Type: "FOLLOWS", Dst: "u2"}))
	require.NoError(t, s.PutEdge(Edge{Src: "u2", Type: "FOLLOWS", Dst: "u3"}))

	var hop2 []string
	for _, mid := range s.OutboundTargetIDs("u1", "FOLLOWS") {
		hop2 = append(hop2, s.OutboundTargetIDs(mid, "FOLLOWS")...)
	}
	assert.Equal(t, []string{"u3"}, hop2)
}

func TestRemoveEdgeClearsBothDirections(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutEdge(Edge{Src: "u1", Type: "FOLLOWS", Dst: "u2"}))
	require.NoError(t, s.RemoveEdge("u1", "FOLLOWS", "u2"))

	assert.Empty(t, s.OutboundTargetIDs("u1", "FOLLOWS"))
	assert.Empty(t, s.InboundSourceIDs("u2", "FOLLOWS"))
}

func TestEdgeWithPropertyIndex(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutEdge(Edge{
		Src: "u1", Type: "RATED", Dst: "p1",
		Properties: map[string]string{"stars": "5"},
	}))

	keys := s.eng.ScanPrefixKeys([]byte("g:idx:e_prop:RATED:stars:5:"))
	require.Len(t, keys, 1)
}
