package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/sprintscope/pkg/database"
)

func openBackupSource(t *testing.T, dir string) *database.Store {
	t.Helper()

	store, err := database.Open(filepath.Join(dir, "sprintscope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.DB().Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`)
	require.NoError(t, err)
	return store
}

func TestSnapshotIncludesRowsStillInWAL(t *testing.T) {
	dir := t.TempDir()
	store := openBackupSource(t, dir)

	// Written through the live connection, not yet checkpointed into the
	// main file
	_, err := store.DB().Exec(`INSERT INTO notes (body) VALUES (?)`, "pending refresh")
	require.NoError(t, err)

	backups := NewBackupService(filepath.Join(dir, "backups"), 3)
	target, err := backups.Snapshot(store)
	require.NoError(t, err)
	require.NotEmpty(t, target)
	assert.Regexp(t, `sprintscope-\d{8}-\d{6}\.db$`, target)

	snapshot, err := database.Open(target)
	require.NoError(t, err)
	defer snapshot.Close()

	var body string
	require.NoError(t, snapshot.DB().QueryRow(`SELECT body FROM notes`).Scan(&body))
	assert.Equal(t, "pending refresh", body)
}

func TestSnapshotMissingSourceIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store := openBackupSource(t, dir)
	require.NoError(t, os.Remove(store.Path()))

	backups := NewBackupService(filepath.Join(dir, "backups"), 3)

	target, err := backups.Snapshot(store)
	require.NoError(t, err)
	assert.Empty(t, target)
}

func TestSnapshotPrunesBeyondRetention(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))

	// Older snapshots from previous refreshes
	stale := []string{
		"sprintscope-20250101-010000.db",
		"sprintscope-20250102-010000.db",
		"sprintscope-20250103-010000.db",
	}
	for _, name := range stale {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("old"), 0o644))
	}
	// An unrelated file must survive pruning
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "notes.txt"), []byte("keep"), 0o644))

	store := openBackupSource(t, dir)

	backups := NewBackupService(backupDir, 2)
	_, err := backups.Snapshot(store)
	require.NoError(t, err)

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)

	var snapshots []string
	unrelated := false
	for _, entry := range entries {
		if entry.Name() == "notes.txt" {
			unrelated = true
			continue
		}
		snapshots = append(snapshots, entry.Name())
	}

	assert.True(t, unrelated)
	assert.Len(t, snapshots, 2, "only the retention bound of snapshots survives")
	assert.NotContains(t, snapshots, "sprintscope-20250101-010000.db")
	assert.NotContains(t, snapshots, "sprintscope-20250102-010000.db")
}
