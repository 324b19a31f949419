package store

import (
	"database/sql"
	"fmt"

	"yui/internal/logging"
)

// migrations run in order inside one transaction; user_version tracks the
// last applied index so upgrades are incremental.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS thought_cycles (
		id            TEXT PRIMARY KEY,
		trigger_id    TEXT NOT NULL,
		question      TEXT NOT NULL,
		category      TEXT NOT NULL,
		importance    REAL NOT NULL,
		source        TEXT NOT NULL,
		status        TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS thoughts (
		id          TEXT PRIMARY KEY,
		cycle_id    TEXT NOT NULL REFERENCES thought_cycles(id),
		persona_id  TEXT NOT NULL,
		content     TEXT NOT NULL,
		confidence  REAL NOT NULL,
		category    TEXT NOT NULL,
		trigger_ref TEXT NOT NULL,
		tags        TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_thoughts_cycle ON thoughts(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_thoughts_confidence ON thoughts(confidence DESC);`,

	`CREATE TABLE IF NOT EXISTS reflections (
		id         TEXT PRIMARY KEY,
		cycle_id   TEXT NOT NULL REFERENCES thought_cycles(id),
		kind       TEXT NOT NULL,
		persona_id TEXT NOT NULL,
		content    TEXT NOT NULL,
		score      REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reflections_cycle ON reflections(cycle_id);`,

	`CREATE TABLE IF NOT EXISTS dpd_history (
		version          INTEGER PRIMARY KEY,
		empathy          REAL NOT NULL,
		coherence        REAL NOT NULL,
		dissonance       REAL NOT NULL,
		trigger_category TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS unresolved_ideas (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id   TEXT NOT NULL,
		question   TEXT NOT NULL,
		resolved   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS beliefs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		statement    TEXT NOT NULL UNIQUE,
		significance REAL NOT NULL,
		created_at   TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS sleep_sessions (
		id            TEXT PRIMARY KEY,
		started_at    TIMESTAMP NOT NULL,
		completed_at  TIMESTAMP,
		energy_before REAL NOT NULL,
		energy_after  REAL,
		last_phase    TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS energy (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		current    REAL NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
}

// migrate applies any pending migrations.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= len(migrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		logging.StoreDebug("applied migration %d", i+1)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("bump schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}

	logging.Store("schema migrated %d -> %d", version, len(migrations))
	return nil
}
