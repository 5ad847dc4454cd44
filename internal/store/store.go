package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2

	// DirName is the cache directory created inside a base directory
	DirName = "cache"
	// FileName is the database file inside DirName
	FileName = "db.sqlite"

	memoryPath = ":memory:"
)

// Store is the persistent lookup cache: a path table keyed by
// (group key, identifier) and a metadata table keyed by file path.
type Store struct {
	db      *sql.DB
	path    string
	onStale StaleFunc
}

// StaleFunc is told about each cache row dropped because its file vanished.
// groupKey and identifier are empty for a metadata row no favorite pointed at.
type StaleFunc func(groupKey, identifier, path string)

// OnStale registers fn to be called after stale rows are deleted on lookup.
// Call it before the store is shared between goroutines.
func (s *Store) OnStale(fn StaleFunc) {
	s.onStale = fn
}

func (s *Store) reportStale(groupKey, identifier, path string) {
	if s.onStale != nil {
		s.onStale(groupKey, identifier, path)
	}
}

// DefaultPath returns <baseDir>/cache/db.sqlite
func DefaultPath(baseDir string) string {
	return filepath.Join(baseDir, DirName, FileName)
}

// OpenForBase opens the cache of a base directory, creating the cache
// directory and database file when absent.
func OpenForBase(baseDir string) (*Store, error) {
	return OpenFile(DefaultPath(baseDir))
}

// OpenFile opens or creates a database at path, creating its parent directory
func OpenFile(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return Open(path)
}

// OpenMemory opens a private in-memory database, used by tests and --no-cache
// style callers that still want the cache protocol for one run.
func OpenMemory() (*Store, error) {
	return Open(memoryPath)
}

// Open opens or creates a SQLite database at the given path and migrates it
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers (last writer wins) and keeps an
	// in-memory database alive for the lifetime of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path != memoryPath {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location (":memory:" for in-memory stores)
func (s *Store) Path() string {
	return s.path
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", memoryPath)
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// v2: reverse lookup of favorites by path, used by purges and re-pointing
	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PathEntry maps a favorite to the file it resolved to
type PathEntry struct {
	GroupKey   string
	Identifier string
	Path       string
	ResolvedAt time.Time
}

// MetadataState distinguishes "never computed" from "computed, nothing found"
type MetadataState int

const (
	// MetadataUnknown means extraction has not run for the path
	MetadataUnknown MetadataState = iota
	// MetadataAbsent means extraction ran and found no JSON
	MetadataAbsent
	// MetadataPresent means extraction found JSON (or fields)
	MetadataPresent
)

func (s MetadataState) String() string {
	switch s {
	case MetadataAbsent:
		return "absent"
	case MetadataPresent:
		return "present"
	default:
		return "unknown"
	}
}

// Metadata is the cached extraction result for one file path
type Metadata struct {
	Path         string
	State        MetadataState
	JSON         string
	CkptName     string
	SamplerNames []string
	ExtractedAt  time.Time
}

// HasFields reports whether any derived field is set
func (m *Metadata) HasFields() bool {
	return m.CkptName != "" || len(m.SamplerNames) > 0
}
