package compact

import (
	"path/filepath"
	"testing"

	"github.com/raipankaj/KoreDB/memtable"
	"github.com/raipankaj/KoreDB/sstable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeg(t *testing.T, dir, name string, pairs ...[2]string) *sstable.Reader {
	t.Helper()
	m := memtable.New()
	for _, p := range pairs {
		m.Put([]byte(p[0]), []byte(p[1]))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, sstable.Write(m, path))
	r, err := sstable.Open(1, path, nil)
	require.NoError(t, err)
	return r
}

func TestMergeNewestWins(t *testing.T) {
	dir := t.TempDir()

	older := writeSeg(t, dir, "older.sst", [2]string{"a", "old-a"}, [2]string{"b", "old-b"})
	newer := writeSeg(t, dir, "newer.sst", [2]string{"a", "new-a"}, [2]string{"c", "new-c"})
	defer older.Close()
	defer newer.Close()

	destPath := filepath.Join(dir, "compacted.sst")
	require.NoError(t, Merge([]Source{
		{Reader: older, Position: 0},
		{Reader: newer, Position: 1},
	}, destPath))

	out, err := sstable.Open(2, destPath, nil)
	require.NoError(t, err)
	defer out.Close()

	v, ok := out.Find([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, "new-a", string(v))

	v, ok = out.Find([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, "old-b", string(v))

	v, ok = out.Find([]byte("c"))
	require.True(t, ok)
	assert.Equal(t, "new-c", string(v))
}

func TestMergeDropsTombstones(t *testing.T) {
	dir := t.TempDir()

	older := writeSeg(t, dir, "older.sst", [2]string{"a", "old-a"})
	newer := writeSeg(t, dir, "newer.sst", [2]string{"a", ""})
	defer older.Close()
	defer newer.Close()

	destPath := filepath.Join(dir, "compacted.sst")
	require.NoError(t, Merge([]Source{
		{Reader: older, Position: 0},
		{Reader: newer, Position: 1},
	}, destPath))

	out, err := sstable.Open(2, destPath, nil)
	require.NoError(t, err)
	defer out.Close()

	_, ok := out.Find([]byte("a"))
	assert.False(t, ok)
}
