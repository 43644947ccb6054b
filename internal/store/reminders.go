package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"hydromate/internal/model"
)

// ReminderStore persists the reminder collection. Listing is ordered
// oldest-added-first; every mutation returns the full updated list.
type ReminderStore struct {
	db *DB
	mu sync.Mutex
}

// NewReminderStore creates a reminder store.
func NewReminderStore(db *DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// List returns all reminders, oldest-added-first.
func (s *ReminderStore) List(ctx context.Context) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, time, enabled FROM reminders ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		var timeStr string
		if err := rows.Scan(&r.ID, &timeStr, &r.Enabled); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.Time, err = model.ParseTimeOfDay(timeStr)
		if err != nil {
			return nil, fmt.Errorf("stored reminder %s: %w", r.ID, err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// Add creates an enabled reminder at the given time with a fresh id,
// appends it and returns the full updated list.
func (s *ReminderStore) Add(ctx context.Context, t model.TimeOfDay) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO reminders (id, time, enabled) VALUES (?, ?, 1)`,
		id, t.String())
	if err != nil {
		return nil, fmt.Errorf("add reminder: %w", err)
	}
	return s.List(ctx)
}

// Update applies the patch to the reminder with the given id and
// returns the full updated list. Returns ErrNotFound for unknown ids.
func (s *ReminderStore) Update(ctx context.Context, id string, patch model.ReminderPatch) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var timeStr string
	var enabled bool
	err := s.db.QueryRowContext(ctx, `
        SELECT time, enabled FROM reminders WHERE id = ?`, id).Scan(&timeStr, &enabled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reminder %s: %w", id, err)
	}

	if patch.Time != nil {
		timeStr = patch.Time.String()
	}
	if patch.Enabled != nil {
		enabled = *patch.Enabled
	}

	_, err = s.db.ExecContext(ctx, `
        UPDATE reminders SET time = ?, enabled = ? WHERE id = ?`,
		timeStr, enabled, id)
	if err != nil {
		return nil, fmt.Errorf("update reminder %s: %w", id, err)
	}
	return s.List(ctx)
}

// Delete removes the reminder with the given id and returns the full
// updated list. Returns ErrNotFound for unknown ids.
func (s *ReminderStore) Delete(ctx context.Context, id string) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete reminder %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.List(ctx)
}

// ReplaceAll atomically replaces the whole collection. This is the
// bulk-regeneration path: a destructive overwrite, not a merge.
func (s *ReminderStore) ReplaceAll(ctx context.Context, reminders []model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders`); err != nil {
		return fmt.Errorf("clear reminders: %w", err)
	}
	for _, r := range reminders {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO reminders (id, time, enabled) VALUES (?, ?, ?)`,
			r.ID, r.Time.String(), r.Enabled); err != nil {
			return fmt.Errorf("insert reminder %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}
