package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"hydromate/internal/model"
)

// Settings keys. These mirror the records the mobile app kept in its
// key-value storage.
const (
	KeyUserProfile   = "userProfile"
	KeyGoal          = "hydrationGoal"
	KeyGoalRange     = "hydrationGoalRange"
	KeyGoalChoice    = "hydrationGoalChoice"
	KeyHydrationUnit = "hydrationUnit"
)

// SettingsStore persists the user profile and goal records as
// key-value settings rows.
type SettingsStore struct {
	db          *DB
	mu          sync.Mutex
	defaultGoal int
}

// NewSettingsStore creates a settings store. defaultGoal is returned
// when no goal has been persisted yet.
func NewSettingsStore(db *DB, defaultGoal int) *SettingsStore {
	return &SettingsStore{db: db, defaultGoal: defaultGoal}
}

func (s *SettingsStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`,
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Profile returns the stored user profile, or (nil, nil) when
// onboarding has not completed yet.
func (s *SettingsStore) Profile(ctx context.Context) (*model.UserProfile, error) {
	raw, ok, err := s.get(ctx, KeyUserProfile)
	if err != nil || !ok {
		return nil, err
	}
	var p model.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return &p, nil
}

// SaveProfile persists the full user profile.
func (s *SettingsStore) SaveProfile(ctx context.Context, p model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.set(ctx, KeyUserProfile, string(data))
}

// Goal returns the selected daily goal in millilitres, falling back to
// the configured default when nothing is stored.
func (s *SettingsStore) Goal(ctx context.Context) (int, error) {
	raw, ok, err := s.get(ctx, KeyGoal)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.defaultGoal, nil
	}
	goal, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("decode stored goal %q: %w", raw, err)
	}
	return goal, nil
}

// SetGoal persists the selected daily goal.
func (s *SettingsStore) SetGoal(ctx context.Context, goalML int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, KeyGoal, strconv.Itoa(goalML))
}

// GoalRange returns the last computed goal band, or (nil, nil) if none
// was stored.
func (s *SettingsStore) GoalRange(ctx context.Context) (*model.GoalRange, error) {
	raw, ok, err := s.get(ctx, KeyGoalRange)
	if err != nil || !ok {
		return nil, err
	}
	var r model.GoalRange
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode stored goal range: %w", err)
	}
	return &r, nil
}

// SetGoalRange persists the computed goal band.
func (s *SettingsStore) SetGoalRange(ctx context.Context, r model.GoalRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode goal range: %w", err)
	}
	return s.set(ctx, KeyGoalRange, string(data))
}

// GoalChoice returns which goal the user picked; empty when unset.
func (s *SettingsStore) GoalChoice(ctx context.Context) (model.GoalChoice, error) {
	raw, _, err := s.get(ctx, KeyGoalChoice)
	return model.GoalChoice(raw), err
}

// SetGoalChoice records the user's goal selection.
func (s *SettingsStore) SetGoalChoice(ctx context.Context, choice model.GoalChoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, KeyGoalChoice, string(choice))
}

// Unit returns the display unit. Only "mL" is supported for now.
func (s *SettingsStore) Unit(ctx context.Context) (string, error) {
	raw, ok, err := s.get(ctx, KeyHydrationUnit)
	if err != nil {
		return "", err
	}
	if !ok {
		return "mL", nil
	}
	return raw, nil
}

// SetUnit records the display unit.
func (s *SettingsStore) SetUnit(ctx context.Context, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, KeyHydrationUnit, unit)
}
