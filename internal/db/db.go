package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/daychain/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "daychain.db"

// Path returns the database path inside baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, FileName)
}

// Init initializes the SQLite database at baseDir/daychain.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.daychain.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Exports land here unless the config allows other directories
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := Path(baseDir)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS templates (
		  id                 TEXT PRIMARY KEY,
		  name               TEXT NOT NULL,
		  default_tags_json  TEXT,
		  color              TEXT,
		  is_routine         INTEGER NOT NULL DEFAULT 0,
		  routine_days_json  TEXT,
		  time_of_day        TEXT,
		  target_daily_min   INTEGER NOT NULL DEFAULT 0,
		  target_weekly_min  INTEGER NOT NULL DEFAULT 0,
		  target_monthly_min INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS plan_items (
		  id            TEXT PRIMARY KEY,
		  day           TEXT NOT NULL,
		  template_id   TEXT,
		  name          TEXT NOT NULL,
		  estimate_min  INTEGER NOT NULL DEFAULT 0,
		  scheduled_at  TEXT,
		  status        TEXT NOT NULL DEFAULT 'todo',
		  prev_status   TEXT,
		  sort_order    INTEGER NOT NULL,
		  auto_injected INTEGER NOT NULL DEFAULT 0,
		  external_key  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_plan_items_day
		ON plan_items(day, sort_order);

		CREATE TABLE IF NOT EXISTS sessions (
		  id                 TEXT PRIMARY KEY,
		  name               TEXT NOT NULL,
		  start_at           INTEGER NOT NULL,
		  end_at             INTEGER NOT NULL,
		  duration_sec       INTEGER NOT NULL,
		  tags_json          TEXT,
		  note               TEXT,
		  template_id        TEXT,
		  plan_id            TEXT,
		  interrupt_group_id TEXT,
		  segment_index      INTEGER NOT NULL DEFAULT 0,
		  CHECK (end_at > start_at)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_start
		ON sessions(start_at);

		CREATE TABLE IF NOT EXISTS active_session (
		  slot                    INTEGER PRIMARY KEY CHECK (slot = 1),
		  id                      TEXT NOT NULL,
		  template_id             TEXT,
		  name                    TEXT NOT NULL,
		  start_at                INTEGER NOT NULL,
		  plan_id                 TEXT,
		  quick_note              TEXT,
		  segment_json            TEXT,
		  alerted                 INTEGER NOT NULL DEFAULT 0,
		  quick_default_tags_json TEXT
		);

		CREATE TABLE IF NOT EXISTS resume_intent (
		  slot                 INTEGER PRIMARY KEY CHECK (slot = 1),
		  base_name            TEXT NOT NULL,
		  base_template_id     TEXT,
		  group_id             TEXT NOT NULL,
		  next_index           INTEGER NOT NULL,
		  interrupt_session_id TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS plan_suppressions (
		  day         TEXT NOT NULL,
		  template_id TEXT NOT NULL,
		  PRIMARY KEY (day, template_id)
		);

		CREATE TABLE IF NOT EXISTS imported_events (
		  key TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS notified (
		  key TEXT PRIMARY KEY
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
