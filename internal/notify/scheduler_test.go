package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromate/internal/model"
)

// mockEngine implements Engine for testing.
type mockEngine struct {
	mu         sync.Mutex
	channels   map[string]Channel
	triggers   map[string]Trigger
	failIDs    map[string]bool
	cancelAlls int
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		channels: map[string]Channel{},
		triggers: map[string]Trigger{},
		failIDs:  map[string]bool{},
	}
}

func (m *mockEngine) CreateChannel(_ context.Context, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
	return nil
}

func (m *mockEngine) CreateTrigger(_ context.Context, t Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[t.ID] {
		return errors.New("engine rejected trigger")
	}
	m.triggers[t.ID] = t
	return nil
}

func (m *mockEngine) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.triggers, id)
	return nil
}

func (m *mockEngine) CancelAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelAlls++
	m.triggers = map[string]Trigger{}
	return nil
}

func (m *mockEngine) ListTriggers(context.Context) ([]Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trigger, 0, len(m.triggers))
	for _, t := range m.triggers {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockEngine) armedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.triggers))
	for id := range m.triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type stubReminders struct{ list []model.Reminder }

func (s stubReminders) List(context.Context) ([]model.Reminder, error) { return s.list, nil }

type stubIntake struct{ total int }

func (s stubIntake) TodayTotal(context.Context) (int, error) { return s.total, nil }

type stubGoal struct{ goal int }

func (s stubGoal) Goal(context.Context) (int, error) { return s.goal, nil }

func allGranted() StaticPermissions {
	return StaticPermissions{Notifications: true, ExactAlarms: true}
}

func newTestScheduler(engine Engine, perms Permissions, reminders ReminderSource, intake IntakeSource, goals GoalSource) *Scheduler {
	logger := zerolog.Nop()
	s := NewScheduler(DefaultSchedulerConfig(), engine, perms, reminders, intake, goals, &logger)
	// Fixed clock: 10:00 local.
	s.SetClock(func() time.Time {
		return time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	})
	return s
}

func TestScheduleAll_ArmsEnabledOnly(t *testing.T) {
	engine := newMockEngine()
	s := newTestScheduler(engine, allGranted(), stubReminders{}, stubIntake{}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	reminders := []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("08:00"), Enabled: true},
		{ID: "b", Time: model.MustTimeOfDay("12:00"), Enabled: false},
		{ID: "c", Time: model.MustTimeOfDay("18:00"), Enabled: true},
	}

	failed, err := s.ScheduleAll(context.Background(), reminders)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, []string{"a", "c"}, engine.armedIDs())
	assert.Equal(t, 1, engine.cancelAlls, "schedule pass starts with a cancel-all")

	armed := s.ScheduledIDs()
	sort.Strings(armed)
	assert.Equal(t, []string{"a", "c"}, armed)
}

func TestScheduleAll_NextFireTodayOrTomorrow(t *testing.T) {
	engine := newMockEngine()
	s := newTestScheduler(engine, allGranted(), stubReminders{}, stubIntake{}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	// Clock is 10:00. 08:00 already passed, 18:00 has not.
	_, err := s.ScheduleAll(context.Background(), []model.Reminder{
		{ID: "past", Time: model.MustTimeOfDay("08:00"), Enabled: true},
		{ID: "future", Time: model.MustTimeOfDay("18:00"), Enabled: true},
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 7, 16, 8, 0, 0, 0, time.UTC), engine.triggers["past"].FireAt,
		"passed time rolls to tomorrow")
	assert.Equal(t, time.Date(2025, 7, 15, 18, 0, 0, 0, time.UTC), engine.triggers["future"].FireAt)
	assert.True(t, engine.triggers["future"].RepeatDaily)
}

func TestScheduleAll_ContinueOnError(t *testing.T) {
	engine := newMockEngine()
	engine.failIDs["b"] = true
	s := newTestScheduler(engine, allGranted(), stubReminders{}, stubIntake{}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	failed, err := s.ScheduleAll(context.Background(), []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
		{ID: "b", Time: model.MustTimeOfDay("12:00"), Enabled: true},
		{ID: "c", Time: model.MustTimeOfDay("13:00"), Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, failed, "one bad reminder must not block the others")
	assert.Equal(t, []string{"a", "c"}, engine.armedIDs())
}

func TestScheduleAll_PermissionDenied(t *testing.T) {
	engine := newMockEngine()
	perms := StaticPermissions{Notifications: false}
	s := newTestScheduler(engine, perms, stubReminders{}, stubIntake{}, stubGoal{goal: 2500})

	failed, err := s.ScheduleAll(context.Background(), []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
	})
	require.NoError(t, err, "permission denial degrades, it does not fail the flow")
	assert.Empty(t, failed)
	assert.Empty(t, engine.armedIDs())
}

func TestScheduleAll_InexactDegradation(t *testing.T) {
	engine := newMockEngine()
	perms := StaticPermissions{Notifications: true, ExactAlarms: false}
	s := newTestScheduler(engine, perms, stubReminders{}, stubIntake{}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	_, err := s.ScheduleAll(context.Background(), []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
	})
	require.NoError(t, err)
	assert.False(t, engine.triggers["a"].Exact, "best-effort trigger without exact alarms")
}

func TestReconcile_GoalMetCancelsTriggers(t *testing.T) {
	engine := newMockEngine()
	reminders := stubReminders{list: []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
	}}
	// Three 200 mL logs against a 500 mL goal.
	s := newTestScheduler(engine, allGranted(), reminders, stubIntake{total: 600}, stubGoal{goal: 500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	_, err := s.ScheduleAll(context.Background(), reminders.list)
	require.NoError(t, err)
	require.NotEmpty(t, engine.armedIDs())

	require.NoError(t, s.Reconcile(context.Background()))
	assert.Empty(t, engine.armedIDs(), "goal met cancels today's remaining triggers")
	assert.Empty(t, s.ScheduledIDs())
}

func TestReconcile_GoalNotMetSchedules(t *testing.T) {
	engine := newMockEngine()
	reminders := stubReminders{list: []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
		{ID: "b", Time: model.MustTimeOfDay("15:00"), Enabled: true},
	}}
	s := newTestScheduler(engine, allGranted(), reminders, stubIntake{total: 300}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	require.NoError(t, s.Reconcile(context.Background()))
	assert.Equal(t, []string{"a", "b"}, engine.armedIDs())
}

func TestReconcile_Idempotent(t *testing.T) {
	engine := newMockEngine()
	reminders := stubReminders{list: []model.Reminder{
		{ID: "a", Time: model.MustTimeOfDay("11:00"), Enabled: true},
		{ID: "b", Time: model.MustTimeOfDay("15:00"), Enabled: true},
	}}
	s := newTestScheduler(engine, allGranted(), reminders, stubIntake{total: 300}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	require.NoError(t, s.Reconcile(context.Background()))
	first := engine.armedIDs()

	require.NoError(t, s.Reconcile(context.Background()))
	assert.Equal(t, first, engine.armedIDs(), "repeated reconcile leaves the same armed set")
}

func TestResync(t *testing.T) {
	engine := newMockEngine()
	s := newTestScheduler(engine, allGranted(), stubReminders{}, stubIntake{}, stubGoal{goal: 2500})
	require.NoError(t, s.EnsureChannel(context.Background()))

	require.NoError(t, engine.CreateTrigger(context.Background(), Trigger{
		ID: "orphan", ChannelID: s.config.ChannelID, FireAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, s.Resync(context.Background()))
	assert.Equal(t, []string{"orphan"}, s.ScheduledIDs())
}

func TestPermissionStatus(t *testing.T) {
	engine := newMockEngine()
	perms := StaticPermissions{Notifications: true, ExactAlarms: false, BatteryOptimization: true}
	s := newTestScheduler(engine, perms, stubReminders{}, stubIntake{}, stubGoal{})

	status := s.PermissionStatus(context.Background())
	assert.True(t, status.Notifications)
	assert.False(t, status.ExactAlarms)
	assert.True(t, status.BatteryOptimization)
}
