// Package sqlite provides a SQLite-backed implementation of the session repository port.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

// Adapter implements the session repository port for SQLite
type Adapter struct {
	db *sql.DB
}

// compile-time interface assertion
var _ ports.SessionRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	dsn := storagePath
	if storagePath != ":memory:" && !strings.Contains(storagePath, "?") {
		dsn = storagePath + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// Every connection to ":memory:" opens a fresh database, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	adapter := &Adapter{db: db}

	// Auto-migrate on startup
	if err := adapter.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Ping reports whether the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		duration_ms INTEGER,
		isrc TEXT,
		tempo REAL,
		energy REAL,
		danceability REAL,
		valence REAL,
		musical_key INTEGER,
		mode INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		target_energy REAL NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		stopped_at DATETIME,
		tracks_played INTEGER NOT NULL DEFAULT 0,
		tracks_skipped INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		played_at DATETIME NOT NULL,
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);

	CREATE TABLE IF NOT EXISTS skips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		played_fraction REAL NOT NULL,
		skipped_at DATETIME NOT NULL,
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_skips_track ON skips(track_id);

	CREATE TABLE IF NOT EXISTS queue_entries (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		track_id TEXT NOT NULL,
		score REAL NOT NULL,
		reason TEXT,
		PRIMARY KEY (session_id, position),
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);
	`
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return err
	}

	// Columns added after the first schema shipped.
	for _, stmt := range []string{
		"ALTER TABLE tracks ADD COLUMN musical_key INTEGER",
		"ALTER TABLE tracks ADD COLUMN mode INTEGER",
		"ALTER TABLE tracks ADD COLUMN danceability REAL",
		"ALTER TABLE tracks ADD COLUMN valence REAL",
	} {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
