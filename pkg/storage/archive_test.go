package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveSaveAndRead(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	name, err := archive.Save("2024-03-06/run-1/SR.csv", []byte("Institution\n"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06/run-1/SR.csv", name)

	data, err := archive.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "Institution\n", string(data))
}

func TestArchiveRejectsEscapingNames(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../outside.csv", "a/../../b.csv", "/etc/passwd"} {
		_, err := archive.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestArchivePruneRemovesExpiredDays(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewArchive(dir)
	require.NoError(t, err)

	for _, name := range []string{"2024-02-01/r1/SR.csv", "2024-02-27/r2/SR.csv", "2024-03-05/r3/AK.csv"} {
		_, err := archive.Save(name, []byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "manual"), 0o755))

	now := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	removed, err := archive.Prune(7*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01", "2024-02-27"}, removed)

	_, err = os.Stat(filepath.Join(dir, "2024-03-05"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "manual"))
	assert.NoError(t, err)
}
