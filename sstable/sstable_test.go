package sstable

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/raipankaj/KoreDB/memtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecBytes(vs ...float32) []byte {
	var mag float64
	for _, v := range vs {
		mag += float64(v) * float64(v)
	}
	b := make([]byte, 4+4*len(vs))
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(float32(math.Sqrt(mag))))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4+i*4:4+i*4+4], math.Float32bits(v))
	}
	return b
}

func writeSegment(t *testing.T, dir string, pairs ...[2]string) string {
	t.Helper()
	m := memtable.New()
	for _, p := range pairs {
		m.Put([]byte(p[0]), []byte(p[1]))
	}
	path := filepath.Join(dir, "segment_1.sst")
	require.NoError(t, Write(m, path))
	return path
}

func TestWriteAndFind(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir, [2]string{"a", "1"}, [2]string{"b", "2"}, [2]string{"c", "3"})

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	v, ok := r.Find([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, "2", string(v))

	_, ok = r.Find([]byte("zzz"))
	assert.False(t, ok)
}

func TestFindMissingKeyFilteredByBloom(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir, [2]string{"alpha", "1"})

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.Find([]byte("definitely-not-present"))
	assert.False(t, ok)
}

func TestScanPrefixInto(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir,
		[2]string{"user:1", "a"},
		[2]string{"user:2", "b"},
		[2]string{"zzz", "c"},
	)

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	dst := map[string][]byte{}
	r.ScanPrefixInto([]byte("user:"), dst)
	require.Len(t, dst, 2)
	assert.Equal(t, "a", string(dst["user:1"]))
	assert.Equal(t, "b", string(dst["user:2"]))
}

func TestScanPrefixOverwritesValueAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir, [2]string{"user:1", "a"})

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	// dst holds an older layer's value; the segment's value replaces it.
	dst := map[string][]byte{"user:1": []byte("older")}
	r.ScanPrefixInto([]byte("user:"), dst)
	assert.Equal(t, "a", string(dst["user:1"]))
}

func TestFindTopVectors(t *testing.T) {
	dir := t.TempDir()
	m := memtable.New()
	m.Put([]byte("vec:1"), vecBytes(1, 0, 0))
	m.Put([]byte("vec:2"), vecBytes(0, 1, 0))
	m.Put([]byte("vec:3"), vecBytes(0.9, 0.1, 0))
	path := filepath.Join(dir, "segment_1.sst")
	require.NoError(t, Write(m, path))

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	hits := r.FindTopVectors([]byte("vec:"), []float32{1, 0, 0}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "vec:1", string(hits[0].Key))
	assert.Equal(t, "vec:3", string(hits[1].Key))
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestOpenRejectsTruncatedFooter(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir, [2]string{"a", "1"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o600))

	_, err = Open(1, path, nil)
	require.Error(t, err)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir, [2]string{"a", "1"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = Open(1, path, nil)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestEmptyMemTableProducesOpenableSegment(t *testing.T) {
	dir := t.TempDir()
	m := memtable.New()
	path := filepath.Join(dir, "segment_1.sst")
	require.NoError(t, Write(m, path))

	r, err := Open(1, path, nil)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.Find([]byte("anything"))
	assert.False(t, ok)
}
