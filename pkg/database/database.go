package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection together with the file path it was opened
// from. Refreshes rebuild into a separate file and swap it in on success, so
// everything that touches the database goes through an explicit Store handle
// instead of a package-level global.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at path
func Open(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func open(path string) (*sql.DB, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_foreign_keys=ON&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = optimize(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// optimize configures SQLite for optimal performance
func optimize(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=30000",
		"PRAGMA mmap_size=268435456", // 256MB
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}

// DB returns the current underlying connection
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the file path the store was opened from
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Swap atomically replaces the store's database file with the file at
// rebuiltPath and reopens the connection. The previous file is already backed
// up by the caller before the rebuild starts.
func (s *Store) Swap(rebuiltPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close current database: %w", err)
	}

	// Drop WAL sidecar files so the renamed database starts clean
	os.Remove(s.path + "-wal")
	os.Remove(s.path + "-shm")

	if err := os.Rename(rebuiltPath, s.path); err != nil {
		// Try to reopen the old file so the store stays usable
		if db, openErr := open(s.path); openErr == nil {
			s.db = db
		}
		return fmt.Errorf("failed to swap database file: %w", err)
	}

	db, err := open(s.path)
	if err != nil {
		return fmt.Errorf("failed to reopen swapped database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate reads and executes SQL scripts from the directory
func (s *Store) Migrate(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	db := s.DB()
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".sql" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file.Name(), err)
		}
	}

	return nil
}
