package model

import (
	"fmt"
	"strings"
)

// Presence is the non-empty, non-tombstone marker value used by every index
// entry that only needs to record existence (spec.md §3: "g:idx:..." keys),
// distinct from both a real value and the zero-length tombstone.
var Presence = []byte{1}

// ValidateComponent enforces spec.md §3's rule that colon-delimited key
// components may not themselves contain ':' (0x3A); callers validate
// user-supplied collection names, ids, labels, and property values with
// this before passing them to the key builders below.
func ValidateComponent(s string) error {
	if strings.ContainsRune(s, ':') {
		return fmt.Errorf("model: key component %q must not contain ':'", s)
	}
	return nil
}

// Document key space: doc:<coll>:<id>.
func DocKey(coll, id string) []byte   { return []byte(fmt.Sprintf("doc:%s:%s", coll, id)) }
func DocPrefix(coll string) []byte    { return []byte(fmt.Sprintf("doc:%s:", coll)) }

// Document secondary-index key space: idx:<coll>:<name>:<value>.
func IndexKey(coll, name, value string) []byte {
	return []byte(fmt.Sprintf("idx:%s:%s:%s", coll, name, value))
}

// Vector payload key space: vec:<coll>:<id>.
func VectorKey(coll, id string) []byte { return []byte(fmt.Sprintf("vec:%s:%s", coll, id)) }
func VectorPrefix(coll string) []byte  { return []byte(fmt.Sprintf("vec:%s:", coll)) }

// Graph node key space: g:v:<id>.
func NodeKey(id string) []byte { return []byte(fmt.Sprintf("g:v:%s", id)) }

// Graph node-label index: g:idx:v:<label>:<id>.
func NodeLabelIndexKey(label, id string) []byte {
	return []byte(fmt.Sprintf("g:idx:v:%s:%s", label, id))
}
func NodeLabelIndexPrefix(label string) []byte {
	return []byte(fmt.Sprintf("g:idx:v:%s:", label))
}

// Graph node-property index: g:idx:v_prop:<label>:<key>:<val>:<id>.
func NodePropertyIndexKey(label, key, val, id string) []byte {
	return []byte(fmt.Sprintf("g:idx:v_prop:%s:%s:%s:%s", label, key, val, id))
}
func NodePropertyIndexPrefix(label, key, val string) []byte {
	return []byte(fmt.Sprintf("g:idx:v_prop:%s:%s:%s:", label, key, val))
}

// Graph outbound/inbound edge key spaces.
func OutEdgeKey(src, typ, dst string) []byte {
	return []byte(fmt.Sprintf("g:e:out:%s:%s:%s", src, typ, dst))
}
func OutEdgePrefix(src, typ string) []byte {
	return []byte(fmt.Sprintf("g:e:out:%s:%s:", src, typ))
}
func InEdgeKey(dst, typ, src string) []byte {
	return []byte(fmt.Sprintf("g:e:in:%s:%s:%s", dst, typ, src))
}
func InEdgePrefix(dst, typ string) []byte {
	return []byte(fmt.Sprintf("g:e:in:%s:%s:", dst, typ))
}

// Graph edge-property index: g:idx:e_prop:<type>:<key>:<val>:<src>:<dst>.
func EdgePropertyIndexKey(typ, key, val, src, dst string) []byte {
	return []byte(fmt.Sprintf("g:idx:e_prop:%s:%s:%s:%s:%s", typ, key, val, src, dst))
}

// LastComponent returns the substring of key following the final ':',
// used by the graph traversal primitives to pull the target/source id back
// out of an edge key without deserializing the edge body (spec.md §4.10).
func LastComponent(key []byte) string {
	s := string(key)
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
