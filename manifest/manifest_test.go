package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingManifestReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	names, err := New(dir).Load()
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	want := []string{"segment_1.sst", "segment_2.sst", "compacted_100.sst"}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// MANIFEST.tmp must not survive a successful Save.
	_, err = os.Stat(filepath.Join(dir, tmpFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveOverwritesPriorContents(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Save([]string{"segment_1.sst"}))
	require.NoError(t, s.Save([]string{"segment_2.sst", "segment_3.sst"}))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"segment_2.sst", "segment_3.sst"}, got)
}
