package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alimgiray/sprintscope/pkg/database"
	"github.com/alimgiray/sprintscope/pkg/logger"
)

const backupTimestampFormat = "20060102-150405"

// BackupService snapshots the persisted store before each refresh and keeps
// a bounded number of recent snapshots
type BackupService struct {
	dir    string
	retain int
}

// NewBackupService creates a backup service writing into dir and retaining
// at most retain snapshots
func NewBackupService(dir string, retain int) *BackupService {
	if retain < 1 {
		retain = 1
	}
	return &BackupService{dir: dir, retain: retain}
}

// Snapshot writes a consistent copy of the store into the backup directory
// with a timestamped name, then prunes the oldest snapshots beyond the
// retention bound. The copy goes through VACUUM INTO so rows still sitting in
// the WAL sidecar are included; a plain file copy of an open WAL database
// would miss them. A missing database file is not an error: there is nothing
// to back up on the very first refresh.
func (s *BackupService) Snapshot(store *database.Store) (string, error) {
	sourcePath := store.Path()
	if _, err := os.Stat(sourcePath); os.IsNotExist(err) {
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	name := fmt.Sprintf("%s-%s.db", base, time.Now().Format(backupTimestampFormat))
	target := filepath.Join(s.dir, name)

	if _, err := store.DB().Exec(`VACUUM INTO ?`, target); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}

	if err := s.prune(base); err != nil {
		return "", err
	}

	logger.WithField("backup", target).Info("Database snapshot created")
	return target, nil
}

// prune removes the oldest snapshots beyond the retention bound. Timestamped
// names sort chronologically, so lexical order is enough.
func (s *BackupService) prune(base string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	var snapshots []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), base+"-") && strings.HasSuffix(entry.Name(), ".db") {
			snapshots = append(snapshots, entry.Name())
		}
	}

	if len(snapshots) <= s.retain {
		return nil
	}

	sort.Strings(snapshots)
	for _, name := range snapshots[:len(snapshots)-s.retain] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return err
		}
		logger.WithField("backup", name).Info("Pruned old snapshot")
	}

	return nil
}
