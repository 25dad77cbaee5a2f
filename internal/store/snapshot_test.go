package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/domain"
)

func TestFileSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	snap := NewFileSnapshot(path)

	records := []domain.ChunkRecord{
		{ID: 0, DocID: "d", Text: "hello", Vector: []float64{0.25, -1}, Source: "a.txt", SessionID: "s"},
		{ID: 1, DocID: "d", Text: "world", Vector: []float64{1, 0}, Source: "a.txt", SessionID: "s"},
	}
	require.NoError(t, snap.Save(records))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestFileSnapshotOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	snap := NewFileSnapshot(path)

	require.NoError(t, snap.Save([]domain.ChunkRecord{{ID: 0, Text: "old"}}))
	require.NoError(t, snap.Save(nil))

	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSnapshotLoadMissing(t *testing.T) {
	snap := NewFileSnapshot(filepath.Join(t.TempDir(), "storage.json"))
	loaded, err := snap.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileSnapshotLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))

	_, err := NewFileSnapshot(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestFileSnapshotCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "storage.json")
	require.NoError(t, NewFileSnapshot(path).Save(nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
