package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("snapshot me"), 0o644))

	storage := filepath.Join(dir, "backups")
	logger := zerolog.Nop()
	s := NewBackupService(dbPath, storage, time.Hour, 7, &logger)

	require.NoError(t, s.PerformBackup())

	files, err := os.ReadDir(storage)
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(storage, files[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "snapshot me", string(data))
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	storage := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	old := filepath.Join(storage, "sessions_20200101_000000.db")
	fresh := filepath.Join(storage, "sessions_recent.db")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, stale, stale))

	logger := zerolog.Nop()
	s := NewBackupService(filepath.Join(dir, "live.db"), storage, time.Hour, 7, &logger)
	s.CleanupOldBackups()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
