// Package planner derives an evenly spaced daily reminder schedule from
// the user's waking window.
package planner

import (
	"time"

	"github.com/google/uuid"

	"hydromate/internal/model"
)

const (
	// WakeOffset delays the first reminder past wake-up.
	WakeOffset = 60 * time.Minute

	// SleepMargin keeps the last reminder clear of bedtime.
	SleepMargin = 30 * time.Minute

	// MinSpacing is the minimum gap between two reminders.
	MinSpacing = 75 * time.Minute
)

// GenerateByCount divides the waking window into count evenly spaced
// reminder slots. The window is [wake+1h, sleep-30m); a window crossing
// midnight is handled by rolling the end to the next day, and a window
// already fully in the past is moved to tomorrow. The count is clamped
// so that slots are never closer than MinSpacing; an empty result means
// the window is too short for even one reminder, not an error.
func GenerateByCount(now time.Time, wake, sleep model.TimeOfDay, count int) []model.Reminder {
	start := wake.On(now).Add(WakeOffset)
	end := sleep.On(now).Add(-SleepMargin)

	// Sleep window crosses midnight.
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	// Today's schedule is already over; plan tomorrow's window.
	if now.After(end) {
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}

	window := end.Sub(start)
	maxReminders := int(window / MinSpacing)

	n := count
	if n > maxReminders {
		n = maxReminders
	}
	if n <= 0 {
		return nil
	}

	interval := window / time.Duration(n)
	reminders := make([]model.Reminder, 0, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * interval)
		reminders = append(reminders, model.Reminder{
			ID:      uuid.NewString(),
			Time:    model.FromTime(at),
			Enabled: true,
		})
	}

	return reminders
}

// CountForGoal maps a goal and the user's goal choice to a reminder
// count. The generator deliberately takes a count, never a raw volume;
// this is the single place the mapping lives.
func CountForGoal(goalML int, choice model.GoalChoice) int {
	switch choice {
	case model.GoalChoiceMax:
		return 8
	case model.GoalChoiceCustom:
		if goalML > 1000 {
			return 5
		}
		return 3
	default:
		return 5
	}
}
