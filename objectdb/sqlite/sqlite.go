// Package sqlite provides an objectdb.Database persisted in a single SQLite
// file, the usual shape of a profile-local object database. Blobs are
// snappy-compressed on disk, matching the block compression such databases
// conventionally apply. This implementation uses modernc.org/sqlite which
// works without CGO.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (CGO_ENABLED=0 compatible)

	"github.com/mwantia/prefs/objectdb"
)

// SQLiteDatabase is an objectdb.Database storing one row per blob path.
type SQLiteDatabase struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewSQLiteDatabase opens or creates the database file. The dbPath can be
// ":memory:" for an in-memory database or a file path.
func NewSQLiteDatabase(dbPath string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteDatabase{
		db: db,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteDatabase) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prefs_blobs (
		path TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDatabase) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, objectdb.ErrClosed
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM prefs_blobs WHERE path = ?", path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *SQLiteDatabase) Load(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectdb.ErrClosed
	}

	var content []byte
	err := s.db.QueryRowContext(ctx, "SELECT content FROM prefs_blobs WHERE path = ?", path).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, objectdb.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	blob, err := snappy.Decode(nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob: %w", err)
	}

	return blob, nil
}

func (s *SQLiteDatabase) Store(ctx context.Context, path string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectdb.ErrClosed
	}

	content := snappy.Encode(nil, blob)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs_blobs (path, content, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, path, content, len(blob), time.Now().Unix())

	return err
}

func (s *SQLiteDatabase) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objectdb.ErrClosed
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM prefs_blobs WHERE path = ?", path)
	return err
}

func (s *SQLiteDatabase) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// Paths returns all stored blob paths in lexical order. Not part of the
// Database contract; used by tooling that inspects a database file.
func (s *SQLiteDatabase) Paths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectdb.ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM prefs_blobs ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}
