// Package storage handles data persistence: SQLite database and filesystem.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Blank import: registers the SQLite driver.
)

// Schema is embedded directly in the binary — no migration files need to
// exist at runtime.
const schema = `
CREATE TABLE IF NOT EXISTS enhancements (
    id               TEXT PRIMARY KEY,
    format           TEXT NOT NULL DEFAULT '',
    byte_size        INTEGER NOT NULL DEFAULT 0,
    tone_score       INTEGER NOT NULL DEFAULT 0,
    detail_score     INTEGER NOT NULL DEFAULT 0,
    resolution_score INTEGER NOT NULL DEFAULT 0,
    overall_score    INTEGER NOT NULL DEFAULT 0,
    plan_json        TEXT NOT NULL DEFAULT '',
    steps_json       TEXT NOT NULL DEFAULT '',
    final_path       TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'running',
    steps_attempted  INTEGER NOT NULL DEFAULT 0,
    steps_succeeded  INTEGER NOT NULL DEFAULT 0,
    error_message    TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS provider_calls (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    enhancement_id TEXT NOT NULL DEFAULT '',
    step           TEXT NOT NULL,
    provider       TEXT NOT NULL,
    success        BOOLEAN NOT NULL DEFAULT 0,
    error_kind     TEXT,
    duration_ms    INTEGER,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_enhancements_status ON enhancements(status);
CREATE INDEX IF NOT EXISTS idx_enhancements_created ON enhancements(created_at);
CREATE INDEX IF NOT EXISTS idx_provider_calls_enhancement ON provider_calls(enhancement_id);
`

// NewDatabase creates a new SQLite connection and runs migrations.
// sqlx wraps database/sql with convenience methods like StructScan and
// NamedExec. The constructor creates the resource AND validates it (Ping);
// if anything fails, the caller gets an error, not a half-open handle.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// SQLite pragmas via DSN:
	// - WAL mode: concurrent reads while writing
	// - foreign_keys: referential integrity
	// - busy_timeout: wait up to 5s instead of failing on lock contention
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Ping actually opens the connection (Open is lazy in database/sql)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
