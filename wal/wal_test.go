package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raipankaj/KoreDB/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(pairs ...string) model.Batch {
	b := make(model.Batch, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		b = append(b, model.Record{Key: []byte(pairs[i]), Value: []byte(pairs[i+1])})
	}
	return b
}

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, w.AppendBatch(batch("k1", "v1"), true))
	require.NoError(t, w.AppendBatch(batch("k2", "v2", "k3", "v3"), false))
	require.NoError(t, w.Close())

	w2, err := Open(dir)
	require.NoError(t, err)
	defer w2.Close()

	var got []model.Batch
	require.NoError(t, w2.Replay(func(b model.Batch) error {
		got = append(got, b)
		return nil
	}))

	require.Len(t, got, 2)
	assert.Equal(t, "k1", string(got[0][0].Key))
	assert.Equal(t, "k3", string(got[1][1].Key))
}

func TestReplayStopsOnTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, w.AppendBatch(batch("k1", "v1"), true))
	require.NoError(t, w.AppendBatch(batch("k2", "v2"), true))
	require.NoError(t, w.AppendBatch(batch("k3", "v3"), true))
	require.NoError(t, w.Close())

	path := filepath.Join(dir, fileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-5))

	w2, err := Open(dir)
	require.NoError(t, err)
	defer w2.Close()

	var got []model.Batch
	require.NoError(t, w2.Replay(func(b model.Batch) error {
		got = append(got, b)
		return nil
	}))

	// k1 and k2 must survive; k3 may or may not, but reopening must not fail.
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "k1", string(got[0][0].Key))
	assert.Equal(t, "k2", string(got[1][0].Key))
}

func TestReplayDiscardsBatchWithBadCRC(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w.AppendBatch(batch("k1", "v1"), true))
	require.NoError(t, w.Close())

	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the key payload to break the CRC check. The frame
	// ends with key "k1", value "v1" and the 4-byte RECORD_COMMIT tag, so
	// the key starts 8 bytes from the end.
	data[len(data)-8] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	w2, err := Open(dir)
	require.NoError(t, err)
	defer w2.Close()

	var got []model.Batch
	require.NoError(t, w2.Replay(func(b model.Batch) error {
		got = append(got, b)
		return nil
	}))
	assert.Empty(t, got)
}

func TestCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, WithCompression(true))
	require.NoError(t, err)
	require.NoError(t, w.AppendBatch(batch("k1", "v1"), true))
	require.NoError(t, w.Close())

	w2, err := Open(dir, WithCompression(true))
	require.NoError(t, err)
	defer w2.Close()

	var got []model.Batch
	require.NoError(t, w2.Replay(func(b model.Batch) error {
		got = append(got, b)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "v1", string(got[0][0].Value))
}
