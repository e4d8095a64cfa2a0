// Package resumecache is the optional side index described in spec
// §3.1/§6.2/§9: a path -> resume-data blob name mapping that platform
// code may consult as a performance hint. The Range model never
// requires it to resume; it is purely an optimization hook behind
// Record.ResumeHint.
//
// Grounded on down-kingo-downkingo's internal/storage package: a
// modernc.org/sqlite-backed DB with WAL pragmas and a single migrated
// table, narrowed here to one small cache table instead of a full
// downloads schema.
package resumecache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"downforge/internal/logger"
)

// Cache is a small sqlite-backed index of path -> resume blob name.
type Cache struct {
	conn *sql.DB
}

// Open creates (or reuses) the cache database under dataDir.
func Open(dataDir string) (*Cache, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("resumecache: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "resumecache.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("resumecache: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("resumecache: set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS resume_hints (
		path TEXT PRIMARY KEY,
		blob_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("resumecache: migrate: %w", err)
	}

	return &Cache{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Put records a fresh resume blob name for path, generating a new
// UUID-based name (spec §6.2: "<UUID>.resumedata") and returning it.
func (c *Cache) Put(path string) (string, error) {
	blobName := uuid.New().String() + ".resumedata"

	_, err := c.conn.Exec(
		`INSERT INTO resume_hints (path, blob_name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET blob_name = excluded.blob_name, created_at = excluded.created_at`,
		path, blobName, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("resumecache: put %q: %w", path, err)
	}
	return blobName, nil
}

// Get returns the resume blob name for path, if one was recorded.
func (c *Cache) Get(path string) (string, bool) {
	var blobName string
	err := c.conn.QueryRow(`SELECT blob_name FROM resume_hints WHERE path = ?`, path).Scan(&blobName)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.Warn().Err(err).Str("path", path).Msg("resumecache: lookup failed")
		}
		return "", false
	}
	return blobName, true
}

// Delete removes any resume hint recorded for path. Safe to call when
// none exists.
func (c *Cache) Delete(path string) error {
	_, err := c.conn.Exec(`DELETE FROM resume_hints WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("resumecache: delete %q: %w", path, err)
	}
	return nil
}
