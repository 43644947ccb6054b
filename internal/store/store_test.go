package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromate/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReminderStore_AddListDelete(t *testing.T) {
	s := NewReminderStore(openTestDB(t))
	ctx := context.Background()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.Add(ctx, model.MustTimeOfDay("08:00"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.MustTimeOfDay("08:00:00"), list[0].Time)
	assert.True(t, list[0].Enabled)
	assert.NotEmpty(t, list[0].ID)

	list, err = s.Add(ctx, model.MustTimeOfDay("12:30"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Oldest-added-first ordering.
	assert.Equal(t, model.MustTimeOfDay("08:00:00"), list[0].Time)
	assert.Equal(t, model.MustTimeOfDay("12:30:00"), list[1].Time)

	list, err = s.Delete(ctx, list[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.MustTimeOfDay("12:30:00"), list[0].Time)

	_, err = s.Delete(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReminderStore_Update(t *testing.T) {
	s := NewReminderStore(openTestDB(t))
	ctx := context.Background()

	list, err := s.Add(ctx, model.MustTimeOfDay("09:00"))
	require.NoError(t, err)
	id := list[0].ID

	off := false
	list, err = s.Update(ctx, id, model.ReminderPatch{Enabled: &off})
	require.NoError(t, err)
	assert.False(t, list[0].Enabled)
	assert.Equal(t, model.MustTimeOfDay("09:00:00"), list[0].Time, "time untouched by enabled patch")

	newTime := model.MustTimeOfDay("10:15")
	list, err = s.Update(ctx, id, model.ReminderPatch{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, newTime, list[0].Time)
	assert.False(t, list[0].Enabled, "enabled untouched by time patch")

	_, err = s.Update(ctx, "missing", model.ReminderPatch{Enabled: &off})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReminderStore_ReplaceAll(t *testing.T) {
	s := NewReminderStore(openTestDB(t))
	ctx := context.Background()

	_, err := s.Add(ctx, model.MustTimeOfDay("09:00"))
	require.NoError(t, err)

	fresh := []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("08:00"), Enabled: true},
		{ID: "b", Time: model.MustTimeOfDay("11:00"), Enabled: false},
	}
	require.NoError(t, s.ReplaceAll(ctx, fresh))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2, "replace is a destructive overwrite")
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	// Replacing with an empty set clears the collection.
	require.NoError(t, s.ReplaceAll(ctx, nil))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIntakeStore_AppendAndTotals(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	s := NewIntakeStore(openTestDB(t), loc)
	ctx := context.Background()

	now := time.Date(2025, 7, 15, 10, 0, 0, 0, loc)
	s.SetClock(func() time.Time { return now })

	_, err := s.Append(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Append(ctx, -200)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	for i := 0; i < 3; i++ {
		_, err = s.Append(ctx, 200)
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	total, err := s.TodayTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 600, total)

	logs, err := s.TodayLogs(ctx)
	require.NoError(t, err)
	sum := 0
	for _, l := range logs {
		sum += l.AmountML
	}
	assert.Equal(t, total, sum, "todayTotal equals the sum of todayLogs")
}

func TestIntakeStore_LocalDayBoundary(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	s := NewIntakeStore(openTestDB(t), loc)
	ctx := context.Background()

	// 23:30 local on the 14th: 20:30 UTC, still the 14th locally.
	now := time.Date(2025, 7, 14, 23, 30, 0, 0, loc)
	s.SetClock(func() time.Time { return now })
	_, err := s.Append(ctx, 250)
	require.NoError(t, err)

	// 00:30 local on the 15th: 21:30 UTC on the 14th, but the 15th locally.
	now = time.Date(2025, 7, 15, 0, 30, 0, 0, loc)
	_, err = s.Append(ctx, 300)
	require.NoError(t, err)

	total, err := s.TodayTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, total, "yesterday's 23:30 log is excluded")

	daily, err := s.DailyTotals(ctx)
	require.NoError(t, err)
	require.Len(t, daily, 2, "logs land in different local-day buckets")
	assert.Equal(t, model.DailyTotal{Date: "2025-07-14", Total: 250}, daily[0])
	assert.Equal(t, model.DailyTotal{Date: "2025-07-15", Total: 300}, daily[1])
}

func TestIntakeStore_DeleteAndAggregates(t *testing.T) {
	loc := time.UTC
	s := NewIntakeStore(openTestDB(t), loc)
	ctx := context.Background()

	now := time.Date(2025, 6, 30, 12, 0, 0, 0, loc)
	s.SetClock(func() time.Time { return now })
	logs, err := s.Append(ctx, 500)
	require.NoError(t, err)

	now = time.Date(2025, 7, 1, 12, 0, 0, 0, loc)
	logs, err = s.Append(ctx, 700)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	monthly, err := s.MonthlyTotals(ctx)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, model.MonthlyTotal{Month: "2025-06", Total: 500}, monthly[0])
	assert.Equal(t, model.MonthlyTotal{Month: "2025-07", Total: 700}, monthly[1])

	weekly, err := s.WeeklyTotals(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, weekly)

	logs, err = s.Delete(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = s.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsStore_RoundTrips(t *testing.T) {
	s := NewSettingsStore(openTestDB(t), 2500)
	ctx := context.Background()

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "no profile before onboarding")

	profile := model.UserProfile{
		Gender:        model.GenderFemale,
		HeightCm:      165,
		WeightKg:      58,
		Age:           29,
		WakeTime:      model.MustTimeOfDay("07:00"),
		SleepTime:     model.MustTimeOfDay("23:00"),
		ActivityLevel: model.ActivityModerate,
		Climate:       model.ClimateTemperate,
	}
	require.NoError(t, s.SaveProfile(ctx, profile))

	p, err = s.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, profile, *p)

	goal, err := s.Goal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2500, goal, "default before anything stored")

	require.NoError(t, s.SetGoal(ctx, 1980))
	goal, err = s.Goal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1980, goal)

	require.NoError(t, s.SetGoalRange(ctx, model.GoalRange{Min: 1980, Max: 2420}))
	r, err := s.GoalRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.GoalRange{Min: 1980, Max: 2420}, r)

	require.NoError(t, s.SetGoalChoice(ctx, model.GoalChoiceMin))
	choice, err := s.GoalChoice(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.GoalChoiceMin, choice)

	unit, err := s.Unit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mL", unit)
}
