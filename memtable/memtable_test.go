package memtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetOverwrite(t *testing.T) {
	m := New()
	m.Put([]byte("a"), []byte("1"))
	m.Put([]byte("b"), []byte("22"))

	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	m.Put([]byte("a"), []byte("111"))
	v, ok = m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("111"), v)

	_, ok = m.Get([]byte("missing"))
	assert.False(t, ok)
}

func TestSizeAccounting(t *testing.T) {
	m := New()
	m.Put([]byte("ab"), []byte("cd")) // 2+2
	assert.EqualValues(t, 4, m.SizeBytes())

	m.Put([]byte("ab"), []byte("x")) // overwrite shrinks value
	assert.EqualValues(t, 3, m.SizeBytes())

	m.Put([]byte("ab"), nil) // tombstone: value shrinks to 0
	assert.EqualValues(t, 2, m.SizeBytes())
}

func TestIterOrderAndPrefix(t *testing.T) {
	m := New()
	for _, k := range []string{"doc:b:2", "doc:a:1", "doc:b:1", "other:1"} {
		m.Put([]byte(k), []byte("v"))
	}

	var got []string
	m.IterAll(func(k, _ []byte) bool {
		got = append(got, string(k))
		return true
	})
	assert.Equal(t, []string{"doc:a:1", "doc:b:1", "doc:b:2", "other:1"}, got)

	got = nil
	m.IterFrom([]byte("doc:b:"), func(k, _ []byte) bool {
		if !hasPrefix(k, []byte("doc:b:")) {
			return false
		}
		got = append(got, string(k))
		return true
	})
	assert.Equal(t, []string{"doc:b:1", "doc:b:2"}, got)
}

func TestClear(t *testing.T) {
	m := New()
	m.Put([]byte("a"), []byte("1"))
	m.Clear()
	assert.Zero(t, m.Len())
	assert.Zero(t, m.SizeBytes())
}

func TestScanPrefixIntoTombstoneRemoves(t *testing.T) {
	m := New()
	m.Put([]byte("idx:a"), []byte("1,2"))
	m.Put([]byte("idx:b"), nil)

	dst := map[string][]byte{"idx:b": []byte("stale")}
	m.ScanPrefixInto([]byte("idx:"), dst)

	assert.Equal(t, []byte("1,2"), dst["idx:a"])
	_, ok := dst["idx:b"]
	assert.False(t, ok)
}
