// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside the Go binary as a single
// file. No separate database server to install, configure, or manage. The
// whole datastore for this app is three small tables with row-level
// consistency needs; SQLite covers that with one moving part.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler and painful
// cross-compilation. modernc.org/sqlite is a pure Go translation of the
// SQLite sources — works everywhere Go works.
//
// CONSISTENCY NOTE:
// The database is the sole arbiter of the collection invariants. The
// UNIQUE(owner_id, catalog_album_id) index kills duplicates at the storage
// level, and the quota check runs inside the same transaction as the insert
// (see album.go) — two concurrent adds can never jointly exceed the cap.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// Side-effect only — the package's init() registers itself with
	// database/sql as a driver named "sqlite". After this import,
	// sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/discs.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SINGLE WRITER:
	// SQLite serialises writes anyway; capping the pool at one connection
	// turns SQLITE_BUSY contention into ordinary pool queueing, and makes
	// ":memory:" behave (each pool connection would otherwise get its OWN
	// private in-memory database).
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) allows reads concurrent with a write —
	// default SQLite locks the whole file during writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// album_entries.owner_id references profiles.id, so we want them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Wherever New() is called,
// defer Close() immediately — it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent
// — safe to run on every startup.
func (db *DB) migrate() error {
	// profiles: one row per provider identity. The provider's user ID is
	// the primary key directly — it's stable and text, and nothing else
	// ever needs to reference a user another way.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url   TEXT NOT NULL DEFAULT '',
			is_public    INTEGER NOT NULL DEFAULT 1,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	// album_entries: the collection rows.
	// The UNIQUE(owner_id, catalog_album_id) index IS the duplicate
	// invariant — enforced by the storage engine, not by application reads.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS album_entries (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL REFERENCES profiles(id),
			catalog_album_id TEXT NOT NULL,
			title            TEXT NOT NULL,
			artist_name      TEXT NOT NULL DEFAULT '',
			cover_image_url  TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (owner_id, catalog_album_id)
		);
		CREATE INDEX IF NOT EXISTS idx_album_entries_owner_created
			ON album_entries(owner_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating album_entries table: %w", err)
	}

	// consents: latest cookie-consent decision per profile.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS consents (
			profile_id  TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating consents table: %w", err)
	}

	return nil
}
