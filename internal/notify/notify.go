// Package notify arms platform notification triggers from the persisted
// reminder list and reconciles them against the daily goal.
package notify

import (
	"context"
	"time"

	"hydromate/internal/model"
)

// Trigger is a platform-level scheduled notification. At most one live
// trigger exists per reminder id; the scheduler enforces this with a
// cancel-all-then-recreate pass rather than incremental diffing.
type Trigger struct {
	ID          string
	ChannelID   string
	Title       string
	Body        string
	FireAt      time.Time
	RepeatDaily bool
	// Exact requests exact-alarm delivery; engines downgrade to
	// best-effort when the permission is missing.
	Exact bool
}

// Channel groups notifications for the platform. Triggers reference a
// channel that must exist before they are created.
type Channel struct {
	ID         string
	Name       string
	Sound      string
	Importance int
}

// Engine is the local notification engine the scheduler drives. The
// scheduler is purely a client; it does not implement the underlying
// alarm mechanism.
type Engine interface {
	// CreateChannel registers a notification channel.
	CreateChannel(ctx context.Context, ch Channel) error

	// CreateTrigger arms a trigger. An existing trigger with the same
	// id is replaced.
	CreateTrigger(ctx context.Context, t Trigger) error

	// Cancel disarms the trigger with the given id.
	Cancel(ctx context.Context, id string) error

	// CancelAll disarms every trigger.
	CancelAll(ctx context.Context) error

	// ListTriggers returns the currently armed triggers.
	ListTriggers(ctx context.Context) ([]Trigger, error)
}

// Notification is a fired reminder ready for delivery.
type Notification struct {
	ID    string
	Title string
	Body  string
}

// Notifier delivers fired notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Permissions reports the platform grants the scheduler adapts to.
// Denials degrade delivery; they never fail the calling flow.
type Permissions interface {
	// NotificationsGranted reports whether notifications may be posted.
	NotificationsGranted(ctx context.Context) (bool, error)

	// ExactAlarmsGranted reports whether exact-alarm scheduling is
	// available.
	ExactAlarmsGranted(ctx context.Context) (bool, error)

	// BatteryOptimizationEnabled reports whether the platform may
	// defer background delivery. Surfaced to the UI, not acted upon.
	BatteryOptimizationEnabled(ctx context.Context) (bool, error)
}

// ReminderSource provides the persisted reminder list.
type ReminderSource interface {
	List(ctx context.Context) ([]model.Reminder, error)
}

// IntakeSource provides today's running intake total.
type IntakeSource interface {
	TodayTotal(ctx context.Context) (int, error)
}

// GoalSource provides the selected daily goal.
type GoalSource interface {
	Goal(ctx context.Context) (int, error)
}

// StaticPermissions is a Permissions implementation backed by
// configuration, standing in for the platform permission prompts.
type StaticPermissions struct {
	Notifications       bool
	ExactAlarms         bool
	BatteryOptimization bool
}

func (p StaticPermissions) NotificationsGranted(context.Context) (bool, error) {
	return p.Notifications, nil
}

func (p StaticPermissions) ExactAlarmsGranted(context.Context) (bool, error) {
	return p.ExactAlarms, nil
}

func (p StaticPermissions) BatteryOptimizationEnabled(context.Context) (bool, error) {
	return p.BatteryOptimization, nil
}
