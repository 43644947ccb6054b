// Package service orchestrates the hydration flows: onboarding, goal
// selection, reminder management and intake logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hydromate/internal/events"
	"hydromate/internal/goal"
	"hydromate/internal/metrics"
	"hydromate/internal/model"
	"hydromate/internal/notify"
	"hydromate/internal/planner"
	"hydromate/internal/store"
)

// Validation errors surfaced to the UI layer.
var (
	ErrGoalNotNumeric  = errors.New("custom goal must contain numbers only")
	ErrUnknownChoice   = errors.New("goal choice must be min, max or custom")
	ErrProfileMissing  = errors.New("user profile has not been set up yet")
	ErrUnsupportedUnit = errors.New("only mL is supported")
)

// GoalBandError reports a custom goal outside the accepted band.
type GoalBandError struct {
	MinML, MaxML int
}

func (e *GoalBandError) Error() string {
	return fmt.Sprintf("custom goal must be between %d and %d mL", e.MinML, e.MaxML)
}

// Reconciler is the scheduling collaborator the service drives after
// every state mutation.
type Reconciler interface {
	ScheduleAll(ctx context.Context, reminders []model.Reminder) ([]string, error)
	Reconcile(ctx context.Context) error
	CancelAll(ctx context.Context) error
}

// StatsInvalidator drops derived report caches after intake mutations.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// GoalInfo is the goal state bundle the UI renders.
type GoalInfo struct {
	GoalML int              `json:"goal_ml"`
	Range  *model.GoalRange `json:"range,omitempty"`
	Choice model.GoalChoice `json:"choice,omitempty"`
	Unit   string           `json:"unit"`
}

// Service wires the stores, the planner and the scheduler together.
type Service struct {
	settings  *store.SettingsStore
	reminders *store.ReminderStore
	intake    *store.IntakeStore
	scheduler Reconciler
	reports   StatsInvalidator
	notifier  notify.Notifier
	bus       *events.EventBus
	logger    *zerolog.Logger

	customMinML int
	customMaxML int
	now         func() time.Time
}

// New creates the hydration service. bus and reports may be nil.
func New(
	settings *store.SettingsStore,
	reminders *store.ReminderStore,
	intake *store.IntakeStore,
	scheduler Reconciler,
	reports StatsInvalidator,
	notifier notify.Notifier,
	bus *events.EventBus,
	customMinML, customMaxML int,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		settings:    settings,
		reminders:   reminders,
		intake:      intake,
		scheduler:   scheduler,
		reports:     reports,
		notifier:    notifier,
		bus:         bus,
		logger:      logger,
		customMinML: customMinML,
		customMaxML: customMaxML,
		now:         time.Now,
	}
}

func (s *Service) publish(eventType string, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Payload: payload})
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

// CompleteOnboarding persists the profile, derives and stores the goal,
// generates the reminder plan and arms it.
func (s *Service) CompleteOnboarding(ctx context.Context, profile model.UserProfile, choice model.GoalChoice, customGoal string) (GoalInfo, []model.Reminder, error) {
	rng := goal.Compute(profile)

	goalML, err := s.resolveGoal(rng, choice, customGoal)
	if err != nil {
		return GoalInfo{}, nil, err
	}

	if err := s.settings.SaveProfile(ctx, profile); err != nil {
		return GoalInfo{}, nil, fmt.Errorf("save profile: %w", err)
	}
	if err := s.settings.SetGoalRange(ctx, rng); err != nil {
		return GoalInfo{}, nil, fmt.Errorf("save goal range: %w", err)
	}
	if err := s.settings.SetGoal(ctx, goalML); err != nil {
		return GoalInfo{}, nil, fmt.Errorf("save goal: %w", err)
	}
	if err := s.settings.SetGoalChoice(ctx, choice); err != nil {
		return GoalInfo{}, nil, fmt.Errorf("save goal choice: %w", err)
	}

	reminders, err := s.regenerate(ctx, profile, goalML, choice)
	if err != nil {
		return GoalInfo{}, nil, err
	}

	s.logger.Info().
		Int("goal_ml", goalML).
		Str("choice", string(choice)).
		Int("reminders", len(reminders)).
		Msg("onboarding completed")
	s.publish(events.TypeProfileUpdated, map[string]any{"onboarding": true})

	return GoalInfo{GoalML: goalML, Range: &rng, Choice: choice, Unit: "mL"}, reminders, nil
}

// Profile returns the stored profile, or ErrProfileMissing before
// onboarding has completed.
func (s *Service) Profile(ctx context.Context) (model.UserProfile, error) {
	p, err := s.settings.Profile(ctx)
	if err != nil {
		return model.UserProfile{}, err
	}
	if p == nil {
		return model.UserProfile{}, ErrProfileMissing
	}
	return *p, nil
}

// UpdateProfile saves the edited profile and re-derives the goal and
// the reminder plan. A custom goal stays pinned; its reminders are
// regenerated only when the wake or sleep time changed.
func (s *Service) UpdateProfile(ctx context.Context, profile model.UserProfile) (GoalInfo, error) {
	previous, err := s.settings.Profile(ctx)
	if err != nil {
		return GoalInfo{}, err
	}

	choice, err := s.settings.GoalChoice(ctx)
	if err != nil {
		return GoalInfo{}, err
	}

	if err := s.settings.SaveProfile(ctx, profile); err != nil {
		return GoalInfo{}, fmt.Errorf("save profile: %w", err)
	}

	var (
		goalML int
		rng    *model.GoalRange
	)
	if choice == model.GoalChoiceCustom {
		// The user pinned an explicit goal; profile edits do not move it.
		goalML, err = s.settings.Goal(ctx)
		if err != nil {
			return GoalInfo{}, err
		}

		windowChanged := previous == nil ||
			previous.WakeTime != profile.WakeTime ||
			previous.SleepTime != profile.SleepTime
		if windowChanged {
			if _, err := s.regenerate(ctx, profile, goalML, choice); err != nil {
				return GoalInfo{}, err
			}
		} else if err := s.scheduler.Reconcile(ctx); err != nil {
			return GoalInfo{}, err
		}
	} else {
		computed := goal.Compute(profile)
		rng = &computed
		if choice == "" {
			choice = model.GoalChoiceMin
		}
		goalML = goal.FromChoice(computed, choice)

		if err := s.settings.SetGoalRange(ctx, computed); err != nil {
			return GoalInfo{}, fmt.Errorf("save goal range: %w", err)
		}
		if err := s.settings.SetGoal(ctx, goalML); err != nil {
			return GoalInfo{}, fmt.Errorf("save goal: %w", err)
		}
		if err := s.settings.SetGoalChoice(ctx, choice); err != nil {
			return GoalInfo{}, fmt.Errorf("save goal choice: %w", err)
		}
		if _, err := s.regenerate(ctx, profile, goalML, choice); err != nil {
			return GoalInfo{}, err
		}
	}

	s.invalidateStats(ctx)
	s.publish(events.TypeProfileUpdated, nil)

	return GoalInfo{GoalML: goalML, Range: rng, Choice: choice, Unit: "mL"}, nil
}

// Goal returns the current goal state bundle.
func (s *Service) Goal(ctx context.Context) (GoalInfo, error) {
	goalML, err := s.settings.Goal(ctx)
	if err != nil {
		return GoalInfo{}, err
	}
	rng, err := s.settings.GoalRange(ctx)
	if err != nil {
		return GoalInfo{}, err
	}
	choice, err := s.settings.GoalChoice(ctx)
	if err != nil {
		return GoalInfo{}, err
	}
	unit, err := s.settings.Unit(ctx)
	if err != nil {
		return GoalInfo{}, err
	}
	return GoalInfo{GoalML: goalML, Range: rng, Choice: choice, Unit: unit}, nil
}

// SelectGoal records the user's goal pick. A custom value must be a
// plain integer within the configured band; on a validation error no
// state is written.
func (s *Service) SelectGoal(ctx context.Context, choice model.GoalChoice, customGoal string) (GoalInfo, error) {
	rng, err := s.settings.GoalRange(ctx)
	if err != nil {
		return GoalInfo{}, err
	}
	if rng == nil {
		return GoalInfo{}, ErrProfileMissing
	}

	goalML, err := s.resolveGoal(*rng, choice, customGoal)
	if err != nil {
		return GoalInfo{}, err
	}

	if err := s.settings.SetGoal(ctx, goalML); err != nil {
		return GoalInfo{}, fmt.Errorf("save goal: %w", err)
	}
	if err := s.settings.SetGoalChoice(ctx, choice); err != nil {
		return GoalInfo{}, fmt.Errorf("save goal choice: %w", err)
	}

	s.invalidateStats(ctx)
	s.publish(events.TypeGoalChanged, map[string]any{"goal_ml": goalML})

	if err := s.scheduler.Reconcile(ctx); err != nil {
		return GoalInfo{}, err
	}

	s.logger.Info().Int("goal_ml", goalML).Str("choice", string(choice)).Msg("goal selected")
	return GoalInfo{GoalML: goalML, Range: rng, Choice: choice, Unit: "mL"}, nil
}

func (s *Service) resolveGoal(rng model.GoalRange, choice model.GoalChoice, customGoal string) (int, error) {
	switch choice {
	case model.GoalChoiceMin:
		return rng.Min, nil
	case model.GoalChoiceMax:
		return rng.Max, nil
	case model.GoalChoiceCustom:
		raw := strings.TrimSpace(customGoal)
		goalML, err := strconv.Atoi(raw)
		if err != nil {
			return 0, ErrGoalNotNumeric
		}
		if goalML < s.customMinML || goalML > s.customMaxML {
			return 0, &GoalBandError{MinML: s.customMinML, MaxML: s.customMaxML}
		}
		return goalML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, choice)
	}
}

// Reminders returns the persisted reminder list.
func (s *Service) Reminders(ctx context.Context) ([]model.Reminder, error) {
	return s.reminders.List(ctx)
}

// AddReminder appends a manual reminder and re-arms the plan.
func (s *Service) AddReminder(ctx context.Context, t model.TimeOfDay) ([]model.Reminder, error) {
	list, err := s.reminders.Add(ctx, t)
	if err != nil {
		return nil, err
	}
	return list, s.afterReminderChange(ctx)
}

// UpdateReminder patches a reminder and re-arms the plan.
func (s *Service) UpdateReminder(ctx context.Context, id string, patch model.ReminderPatch) ([]model.Reminder, error) {
	list, err := s.reminders.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return list, s.afterReminderChange(ctx)
}

// DeleteReminder removes a reminder and re-arms the plan.
func (s *Service) DeleteReminder(ctx context.Context, id string) ([]model.Reminder, error) {
	list, err := s.reminders.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return list, s.afterReminderChange(ctx)
}

func (s *Service) afterReminderChange(ctx context.Context) error {
	s.publish(events.TypeRemindersChanged, nil)
	return s.scheduler.Reconcile(ctx)
}

// RegenerateReminders rebuilds the reminder plan from the stored
// profile and goal, replacing any manual edits.
func (s *Service) RegenerateReminders(ctx context.Context) ([]model.Reminder, error) {
	profile, err := s.settings.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileMissing
	}

	goalML, err := s.settings.Goal(ctx)
	if err != nil {
		return nil, err
	}
	choice, err := s.settings.GoalChoice(ctx)
	if err != nil {
		return nil, err
	}

	return s.regenerate(ctx, *profile, goalML, choice)
}

// regenerate replaces the stored plan with a freshly generated one and
// arms it.
func (s *Service) regenerate(ctx context.Context, profile model.UserProfile, goalML int, choice model.GoalChoice) ([]model.Reminder, error) {
	count := planner.CountForGoal(goalML, choice)
	reminders := planner.GenerateByCount(s.now(), profile.WakeTime, profile.SleepTime, count)

	if err := s.reminders.ReplaceAll(ctx, reminders); err != nil {
		return nil, fmt.Errorf("replace reminders: %w", err)
	}
	metrics.AddRemindersGenerated(len(reminders))
	s.publish(events.TypeRemindersChanged, map[string]any{"count": len(reminders)})

	failed, err := s.scheduler.ScheduleAll(ctx, reminders)
	if err != nil {
		return nil, fmt.Errorf("arm reminders: %w", err)
	}
	if len(failed) > 0 {
		s.logger.Warn().Strs("failed_ids", failed).Msg("some regenerated reminders failed to arm")
	}
	return reminders, nil
}

// LogIntake appends a water log and reconciles the triggers so the
// remaining reminders are cancelled once the goal is met.
func (s *Service) LogIntake(ctx context.Context, amountML int) ([]model.WaterLog, error) {
	logs, err := s.intake.Append(ctx, amountML)
	if err != nil {
		return nil, err
	}

	metrics.IncIntakeLogged(amountML)
	s.invalidateStats(ctx)
	s.publish(events.TypeIntakeLogged, map[string]any{"amount_ml": amountML})

	if err := s.scheduler.Reconcile(ctx); err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteIntake removes a water log and reconciles the triggers, which
// may re-arm reminders if the total drops back under the goal.
func (s *Service) DeleteIntake(ctx context.Context, id string) ([]model.WaterLog, error) {
	logs, err := s.intake.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.publish(events.TypeIntakeDeleted, map[string]any{"id": id})

	if err := s.scheduler.Reconcile(ctx); err != nil {
		return nil, err
	}
	return logs, nil
}

// TodayLogs returns today's water logs in local calendar terms.
func (s *Service) TodayLogs(ctx context.Context) ([]model.WaterLog, error) {
	return s.intake.TodayLogs(ctx)
}

// TodayTotal returns today's running total in millilitres.
func (s *Service) TodayTotal(ctx context.Context) (int, error) {
	return s.intake.TodayTotal(ctx)
}

// SetUnit records the display unit. Only "mL" is accepted for now.
func (s *Service) SetUnit(ctx context.Context, unit string) error {
	if unit != "mL" {
		return ErrUnsupportedUnit
	}
	return s.settings.SetUnit(ctx, unit)
}

// SendTestNotification fires an instant notification through the
// delivery channel, bypassing the trigger engine.
func (s *Service) SendTestNotification(ctx context.Context) error {
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	err := s.notifier.Notify(ctx, notify.Notification{
		ID:    "test",
		Title: notify.ReminderTitle,
		Body:  "This is a test notification.",
	})
	if err != nil {
		metrics.IncNotificationSent("error")
		return fmt.Errorf("send test notification: %w", err)
	}
	metrics.IncNotificationSent("ok")
	return nil
}

// SetClock overrides the service's time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
