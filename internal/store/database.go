// Package store persists the hydration data model in SQLite. Each
// logical collection is owned by one store type, and every store
// serializes its read-modify-write mutations behind a single mutex so
// concurrent callers cannot interleave partial updates.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidAmount is returned for non-positive intake amounts.
var ErrInvalidAmount = errors.New("intake amount must be a positive number of millilitres")

// DB wraps sql.DB for the hydration service.
type DB struct {
	*sql.DB
}

// Open opens the database at path and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Key-value settings: userProfile, hydrationGoal,
		// hydrationGoalRange, hydrationGoalChoice, hydrationUnit.
		`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Daily reminder slots
		`CREATE TABLE IF NOT EXISTS reminders (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT UNIQUE NOT NULL,
            time TEXT NOT NULL,
            enabled BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Intake events
		`CREATE TABLE IF NOT EXISTS water_logs (
            id TEXT PRIMARY KEY,
            amount INTEGER NOT NULL,
            timestamp INTEGER NOT NULL
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_water_logs_timestamp ON water_logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_enabled ON reminders(enabled)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
