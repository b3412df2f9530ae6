package graph

import "github.com/raipankaj/KoreDB/model"

// Node is one graph vertex: its caller-opaque serialized body plus the
// labels and properties used to build the secondary indices spec.md §4.10
// describes. Only Data is itself persisted at g:v:<id>; Labels/Properties
// exist to drive index writes and are not reconstructible from GetNode.
type Node struct {
	ID         string
	Labels     []string
	Properties map[string]string
	Data       []byte
}

// Edge is one directed, typed graph edge between two node ids. An edge
// with empty Data is stored with model.Presence as its value.
type Edge struct {
	Src, Type, Dst string
	Properties     map[string]string
	Data           []byte
}

// PutNode emits the node record plus its label and property indices in one
// atomic batch (spec.md §4.10 "Graph nodes and edges").
func (s *Store) PutNode(n Node) error {
	if err := validateKeyParts(n.ID); err != nil {
		return err
	}
	batch := model.Batch{{Key: model.NodeKey(n.ID), Value: n.Data}}
	for _, label := range n.Labels {
		if err := validateKeyParts(label); err != nil {
			return err
		}
		batch = append(batch, model.Record{Key: model.NodeLabelIndexKey(label, n.ID), Value: model.Presence})
		for k, v := range n.Properties {
			if err := validateKeyParts(k, v); err != nil {
				return err
			}
			batch = append(batch, model.Record{
				Key:   model.NodePropertyIndexKey(label, k, v, n.ID),
				Value: model.Presence,
			})
		}
	}
	return s.eng.WriteBatch(batch, false)
}

// GetNode returns the raw bytes stored at g:v:<id>.
func (s *Store) GetNode(id string) ([]byte, bool) {
	return s.eng.Get(model.NodeKey(id))
}

// NodesByLabel returns the ids carrying label, via the g:idx:v: index.
func (s *Store) NodesByLabel(label string) []string {
	keys := s.eng.ScanPrefixKeys(model.NodeLabelIndexPrefix(label))
	return lastComponents(keys)
}

// NodesByProperty returns the ids of label-tagged nodes whose key property
// currently equals val, via the g:idx:v_prop: index. Per spec.md §8 P13,
// this may include ids whose property has since changed; the caller must
// post-filter by re-reading the node through GetNode.
func (s *Store) NodesByProperty(label, key, val string) []string {
	keys := s.eng.ScanPrefixKeys(model.NodePropertyIndexPrefix(label, key, val))
	return lastComponents(keys)
}

func lastComponents(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = model.LastComponent(k)
	}
	return out
}

// PutEdge emits the outbound and inbound edge records plus any edge-property
// indices in one atomic batch (spec.md §4.10).
func (s *Store) PutEdge(e Edge) error {
	if err := validateKeyParts(e.Src, e.Type, e.Dst); err != nil {
		return err
	}
	value := e.Data
	if len(value) == 0 {
		value = model.Presence // a zero-length value would be a tombstone
	}
	batch := model.Batch{
		{Key: model.OutEdgeKey(e.Src, e.Type, e.Dst), Value: value},
		{Key: model.InEdgeKey(e.Dst, e.Type, e.Src), Value: value},
	}
	for k, v := range e.Properties {
		if err := validateKeyParts(k, v); err != nil {
			return err
		}
		batch = append(batch, model.Record{
			Key:   model.EdgePropertyIndexKey(e.Type, k, v, e.Src, e.Dst),
			Value: model.Presence,
		})
	}
	return s.eng.WriteBatch(batch, false)
}

// RemoveEdge tombstones both the outbound and inbound edge records.
// Edge-property indices are left as stale markers (spec.md §4.10): callers
// that rely on them must post-filter by re-reading the edge.
func (s *Store) RemoveEdge(src, typ, dst string) error {
	return s.eng.WriteBatch(model.Batch{
		{Key: model.OutEdgeKey(src, typ, dst), Value: nil},
		{Key: model.InEdgeKey(dst, typ, src), Value: nil},
	}, false)
}

// OutboundTargetIDs returns the target ids reachable from src via an edge of
// type typ, without deserializing any edge body (spec.md §4.10 traversal
// primitives, §8 P11).
func (s *Store) OutboundTargetIDs(src, typ string) []string {
	return lastComponents(s.eng.ScanPrefixKeys(model.OutEdgePrefix(src, typ)))
}

// InboundSourceIDs returns the source ids with an edge of type typ pointing
// at dst, symmetric to OutboundTargetIDs.
func (s *Store) InboundSourceIDs(dst, typ string) []string {
	return lastComponents(s.eng.ScanPrefixKeys(model.InEdgePrefix(dst, typ)))
}
