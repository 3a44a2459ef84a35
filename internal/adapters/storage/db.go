package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one schema step. Migrations run in order inside a transaction
// each, recording their version in schema_version.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base schema",
		sql: `
	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		club_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		court_id TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		max_players INTEGER NOT NULL,
		has_recycled_vacancy INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS activity_option (
		activity_id TEXT NOT NULL,
		size INTEGER NOT NULL,
		price INTEGER NOT NULL,
		PRIMARY KEY (activity_id, size),
		FOREIGN KEY (activity_id) REFERENCES activity(id)
	);

	CREATE TABLE IF NOT EXISTS participation (
		id TEXT PRIMARY KEY,
		activity_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		option_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		blocked_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		was_confirmed INTEGER NOT NULL DEFAULT 0,
		is_recycled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		cancelled_at TEXT,
		FOREIGN KEY (activity_id) REFERENCES activity(id)
	);

	CREATE TABLE IF NOT EXISTS user_account (
		user_id TEXT PRIMARY KEY,
		money_total INTEGER NOT NULL DEFAULT 0,
		money_blocked INTEGER NOT NULL DEFAULT 0,
		points_total INTEGER NOT NULL DEFAULT 0,
		points_blocked INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS ledger_transaction (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		action TEXT NOT NULL,
		amount INTEGER NOT NULL,
		total_after INTEGER NOT NULL,
		blocked_after INTEGER NOT NULL,
		concept TEXT NOT NULL DEFAULT '',
		activity_id TEXT,
		participation_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_occupancy (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS court (
		id TEXT PRIMARY KEY,
		club_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT ''
	);
	`,
	},
	{
		version: 2,
		name:    "indexes",
		sql: `
	CREATE INDEX IF NOT EXISTS idx_participation_activity ON participation(activity_id);
	CREATE INDEX IF NOT EXISTS idx_participation_user ON participation(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_ledger_tx_user ON ledger_transaction(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_occupancy_resource ON resource_occupancy(resource_id);
	CREATE INDEX IF NOT EXISTS idx_occupancy_activity ON resource_occupancy(activity_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_court_club_number ON court(club_id, number);
	CREATE INDEX IF NOT EXISTS idx_activity_club_start ON activity(club_id, start_time);
	`,
	},
}

// LatestSchemaVersion returns the highest migration version.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// MigrateDB brings the schema up to the latest version.
// PRE: db is a valid connection with foreign keys enabled
// POST: schema_version holds LatestSchemaVersion; all tables exist
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.version <= int(current.Int64) {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
