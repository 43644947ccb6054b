package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hydromate/internal/metrics"
	"hydromate/internal/model"
)

// Default notification payload.
const (
	ReminderTitle = "Time to hydrate"
	ReminderBody  = "Drink a glass of water and stay fresh."
)

// SchedulerConfig holds configuration for the notification scheduler.
type SchedulerConfig struct {
	// ChannelID is the notification channel triggers are created on.
	ChannelID string
	// ChannelName is the channel's display name.
	ChannelName string
	// Sound is the notification sound resource.
	Sound string
	// CheckInterval is how often the reconcile loop runs.
	CheckInterval time.Duration
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ChannelID:     "hydration-reminder-channel",
		ChannelName:   "Hydration Reminders",
		Sound:         "notification",
		CheckInterval: 15 * time.Minute,
	}
}

// PermissionStatus is a snapshot of the platform grants, surfaced to
// the UI so it can deep-link into system settings.
type PermissionStatus struct {
	Notifications       bool `json:"notifications"`
	ExactAlarms         bool `json:"exact_alarms"`
	BatteryOptimization bool `json:"battery_optimization"`
}

// Scheduler translates the reminder list into armed triggers and
// cancels them once the daily goal is met.
type Scheduler struct {
	config    SchedulerConfig
	engine    Engine
	perms     Permissions
	reminders ReminderSource
	intake    IntakeSource
	goals     GoalSource
	logger    *zerolog.Logger
	now       func() time.Time

	mu           sync.Mutex
	scheduledIDs map[string]struct{}
	running      bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewScheduler creates a notification scheduler.
func NewScheduler(
	config SchedulerConfig,
	engine Engine,
	perms Permissions,
	reminders ReminderSource,
	intake IntakeSource,
	goals GoalSource,
	logger *zerolog.Logger,
) *Scheduler {
	if config.ChannelID == "" {
		config.ChannelID = DefaultSchedulerConfig().ChannelID
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = DefaultSchedulerConfig().CheckInterval
	}

	return &Scheduler{
		config:       config,
		engine:       engine,
		perms:        perms,
		reminders:    reminders,
		intake:       intake,
		goals:        goals,
		logger:       logger,
		now:          time.Now,
		scheduledIDs: make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}
}

// EnsureChannel registers the reminder channel on the engine.
func (s *Scheduler) EnsureChannel(ctx context.Context) error {
	return s.engine.CreateChannel(ctx, Channel{
		ID:         s.config.ChannelID,
		Name:       s.config.ChannelName,
		Sound:      s.config.Sound,
		Importance: 4,
	})
}

// nextFire returns the next future instant for a time-of-day: today if
// it has not passed yet, otherwise tomorrow.
func (s *Scheduler) nextFire(t model.TimeOfDay) time.Time {
	now := s.now()
	fire := t.On(now)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// ScheduleAll cancels every armed trigger and recreates one daily
// repeating trigger per enabled reminder. A failure to arm one
// reminder does not abort the rest; the ids that failed are returned.
func (s *Scheduler) ScheduleAll(ctx context.Context, reminders []model.Reminder) ([]string, error) {
	if err := s.engine.CancelAll(ctx); err != nil {
		return nil, fmt.Errorf("cancel existing triggers: %w", err)
	}

	s.mu.Lock()
	s.scheduledIDs = make(map[string]struct{})
	s.mu.Unlock()
	metrics.SetScheduledTriggers(0)

	granted, err := s.perms.NotificationsGranted(ctx)
	if err != nil {
		return nil, fmt.Errorf("check notification permission: %w", err)
	}
	if !granted {
		s.logger.Warn().Msg("notification permission not granted; reminders stay disarmed")
		return nil, nil
	}

	exact, err := s.perms.ExactAlarmsGranted(ctx)
	if err != nil {
		return nil, fmt.Errorf("check exact alarm permission: %w", err)
	}
	if !exact {
		s.logger.Warn().Msg("exact alarms unavailable; scheduling best-effort triggers")
	}

	var failed []string
	for _, r := range reminders {
		if !r.Enabled {
			continue
		}

		trigger := Trigger{
			ID:          r.ID,
			ChannelID:   s.config.ChannelID,
			Title:       ReminderTitle,
			Body:        ReminderBody,
			FireAt:      s.nextFire(r.Time),
			RepeatDaily: true,
			Exact:       exact,
		}
		if err := s.engine.CreateTrigger(ctx, trigger); err != nil {
			s.logger.Error().Err(err).Str("reminder_id", r.ID).Msg("failed to arm reminder")
			metrics.IncTriggerFailure()
			failed = append(failed, r.ID)
			continue
		}

		s.mu.Lock()
		s.scheduledIDs[r.ID] = struct{}{}
		n := len(s.scheduledIDs)
		s.mu.Unlock()

		metrics.IncTriggerScheduled()
		metrics.SetScheduledTriggers(n)
		s.logger.Debug().
			Str("reminder_id", r.ID).
			Time("fire_at", trigger.FireAt).
			Msg("reminder armed")
	}

	return failed, nil
}

// CancelAll disarms every trigger.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	if err := s.engine.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancel triggers: %w", err)
	}

	s.mu.Lock()
	s.scheduledIDs = make(map[string]struct{})
	s.mu.Unlock()
	metrics.SetScheduledTriggers(0)

	s.logger.Info().Msg("all hydration reminders cancelled")
	return nil
}

// Reconcile compares today's intake against the goal: once the goal is
// met the remaining triggers are cancelled, otherwise the persisted
// reminder list is (re)scheduled. Calling it twice with unchanged
// intake and goal leaves the same set of armed triggers.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	total, err := s.intake.TodayTotal(ctx)
	if err != nil {
		return fmt.Errorf("read today's total: %w", err)
	}

	goalML, err := s.goals.Goal(ctx)
	if err != nil {
		return fmt.Errorf("read goal: %w", err)
	}

	if goalML > 0 && total >= goalML {
		s.logger.Info().
			Int("total_ml", total).
			Int("goal_ml", goalML).
			Msg("daily goal reached; cancelling reminders")
		metrics.IncReconcile("goal_met")
		return s.CancelAll(ctx)
	}

	reminders, err := s.reminders.List(ctx)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}

	failed, err := s.ScheduleAll(ctx, reminders)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		s.logger.Warn().Strs("failed_ids", failed).Msg("some reminders failed to arm")
	}

	metrics.IncReconcile("scheduled")
	return nil
}

// PermissionStatus snapshots the platform grants for the UI.
func (s *Scheduler) PermissionStatus(ctx context.Context) PermissionStatus {
	var status PermissionStatus
	status.Notifications, _ = s.perms.NotificationsGranted(ctx)
	status.ExactAlarms, _ = s.perms.ExactAlarmsGranted(ctx)
	status.BatteryOptimization, _ = s.perms.BatteryOptimizationEnabled(ctx)
	return status
}

// ScheduledIDs returns the ids of the triggers the scheduler armed.
func (s *Scheduler) ScheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.scheduledIDs))
	for id := range s.scheduledIDs {
		ids = append(ids, id)
	}
	return ids
}

// Resync rebuilds the scheduled-id set from the engine's live trigger
// listing, e.g. after a process restart.
func (s *Scheduler) Resync(ctx context.Context) error {
	triggers, err := s.engine.ListTriggers(ctx)
	if err != nil {
		return fmt.Errorf("list live triggers: %w", err)
	}

	s.mu.Lock()
	s.scheduledIDs = make(map[string]struct{}, len(triggers))
	for _, t := range triggers {
		s.scheduledIDs[t.ID] = struct{}{}
	}
	n := len(s.scheduledIDs)
	s.mu.Unlock()

	metrics.SetScheduledTriggers(n)
	return nil
}

// Start begins the periodic reconcile loop. The mobile app reconciled
// on every foreground; the service equivalent is a ticker.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Msg("reconcile loop started")
}

// Stop gracefully stops the reconcile loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("reconcile loop stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately on start
	if err := s.Reconcile(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial reconcile failed")
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Reconcile(ctx); err != nil {
				s.logger.Error().Err(err).Msg("reconcile failed")
			}
		}
	}
}

// SetClock overrides the scheduler's time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}
