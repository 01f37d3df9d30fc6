package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/StanzaFlow/StanzaFlow/internal/escape"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema (pre-migration)
// 1 - added pattern_id index
const currentSchemaVersion = 1

// Store is a persistent escape.Cache backed by SQLite.
type Store struct {
	db *sql.DB
}

// Cache implementations must stay interchangeable with the in-process one.
var _ escape.Cache = (*Store)(nil)

// Open creates or opens the cache database at the given path, applying
// pragmas and migrations. Safe to call repeatedly on the same path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to cache database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent resolutions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the entry for key, or ok=false on a miss.
func (s *Store) Get(key string) (escape.Entry, bool, error) {
	var entry escape.Entry
	var createdAt string
	err := s.db.QueryRow(`
		SELECT key, pattern_id, target, code, verdict, created_at
		FROM escape_entries
		WHERE key = ?
	`, key).Scan(&entry.Key, &entry.PatternID, &entry.Target, &entry.Code, &entry.Verdict, &createdAt)
	if err == sql.ErrNoRows {
		return escape.Entry{}, false, nil
	}
	if err != nil {
		return escape.Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return escape.Entry{}, false, fmt.Errorf("get cache entry: parse created_at: %w", err)
	}
	return entry, true, nil
}

// Put stores an entry. A key that already exists is silently ignored: the
// key encodes full content identity, so the existing row is the same code.
func (s *Store) Put(entry escape.Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO escape_entries
		(key, pattern_id, target, code, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		entry.Key,
		entry.PatternID,
		entry.Target,
		entry.Code,
		entry.Verdict,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Count reports the number of cached entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM escape_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if missing and runs migrations. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the pattern_id index for databases created before it was
// part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_escape_entries_pattern
		ON escape_entries(pattern_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
