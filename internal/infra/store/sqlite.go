// Package store provides the SQLite-backed play history archive.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the play history database.
	DefaultDBPath = "data/playhistory.db"
)

// DB represents the SQLite play history database.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDB creates a new play history database instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Ensure directory exists
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Play history database opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

// initSchema initializes the database schema.
func (d *DB) initSchema() error {
	currentVersion := d.getSchemaVersion()

	if currentVersion == "" {
		if err := d.createSchema(); err != nil {
			return err
		}
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating history schema")
		// Add migration logic here when schema changes
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

// createSchema creates all database tables.
func (d *DB) createSchema() error {
	schema := `
	-- Play history: append-only archive of captured plays.
	-- Corrections supersede earlier rows; nothing is ever deleted.
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL UNIQUE,
		artist TEXT NOT NULL,
		track TEXT NOT NULL,
		release_name TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		dj_name TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		is_local_artist INTEGER NOT NULL DEFAULT 0,
		played_at_utc TEXT NOT NULL,
		played_at_utc_epoch INTEGER NOT NULL,
		played_at_local TEXT NOT NULL DEFAULT '',
		played_at_local_epoch INTEGER NOT NULL DEFAULT 0,
		art_small TEXT NOT NULL DEFAULT '',
		art_medium TEXT NOT NULL DEFAULT '',
		art_large TEXT NOT NULL DEFAULT '',
		art_resolved TEXT NOT NULL DEFAULT '',
		correction_of INTEGER,
		is_superseded INTEGER NOT NULL DEFAULT 0,
		raw_payload TEXT,
		capture_source TEXT NOT NULL DEFAULT 'scheduled',
		captured_at TEXT NOT NULL,
		FOREIGN KEY (correction_of) REFERENCES play_history(id)
	);

	-- Metadata
	CREATE TABLE IF NOT EXISTS history_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes for history queries
	CREATE INDEX IF NOT EXISTS idx_history_played_epoch ON play_history(played_at_utc_epoch DESC);
	CREATE INDEX IF NOT EXISTS idx_history_artist ON play_history(artist COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_history_dj ON play_history(dj_name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_history_art_cache ON play_history(artist COLLATE NOCASE, release_name COLLATE NOCASE);
	`

	_, err := d.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Play history schema created")
	return nil
}

// getSchemaVersion returns the current schema version.
func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM history_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// setMeta sets a metadata value.
func (d *DB) setMeta(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO history_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, time.Now().Format(time.RFC3339), value, time.Now().Format(time.RFC3339))
	return err
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer the DAO methods.
func (d *DB) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}
