package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hydromate/internal/metrics"
)

// EngineConfig holds configuration for the in-process engine.
type EngineConfig struct {
	// RatePerSecond limits notification delivery.
	RatePerSecond float64
	// Burst is the delivery burst size.
	Burst int
	// DeliveryTimeout bounds a single delivery attempt.
	DeliveryTimeout time.Duration
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RatePerSecond:   1,
		Burst:           5,
		DeliveryTimeout: 30 * time.Second,
	}
}

type armedTrigger struct {
	trigger Trigger
	timer   *time.Timer
}

// TimerEngine is an in-process Engine backed by Go timers. It delivers
// fired triggers through a Notifier and re-arms daily-repeating ones.
type TimerEngine struct {
	config   EngineConfig
	notifier Notifier
	limiter  *rate.Limiter
	logger   *zerolog.Logger

	mu       sync.Mutex
	channels map[string]Channel
	armed    map[string]*armedTrigger
}

// NewTimerEngine creates an engine delivering through notifier.
func NewTimerEngine(config EngineConfig, notifier Notifier, logger *zerolog.Logger) *TimerEngine {
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = DefaultEngineConfig().RatePerSecond
	}
	if config.Burst <= 0 {
		config.Burst = DefaultEngineConfig().Burst
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = DefaultEngineConfig().DeliveryTimeout
	}

	return &TimerEngine{
		config:   config,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		logger:   logger,
		channels: make(map[string]Channel),
		armed:    make(map[string]*armedTrigger),
	}
}

// CreateChannel registers a channel. Re-registering an id overwrites it.
func (e *TimerEngine) CreateChannel(_ context.Context, ch Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channels[ch.ID] = ch
	return nil
}

// CreateTrigger arms a trigger, replacing any armed trigger with the
// same id.
func (e *TimerEngine) CreateTrigger(_ context.Context, t Trigger) error {
	if t.ID == "" {
		return fmt.Errorf("trigger id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.channels[t.ChannelID]; !ok {
		return fmt.Errorf("unknown notification channel %q", t.ChannelID)
	}

	if existing, ok := e.armed[t.ID]; ok {
		existing.timer.Stop()
	}

	delay := time.Until(t.FireAt)
	if delay < 0 {
		return fmt.Errorf("trigger %s fire time is in the past", t.ID)
	}

	id := t.ID
	e.armed[id] = &armedTrigger{
		trigger: t,
		timer:   time.AfterFunc(delay, func() { e.fire(id) }),
	}
	return nil
}

// Cancel disarms the trigger with the given id. Cancelling an unknown
// id is a no-op, matching platform cancel semantics.
func (e *TimerEngine) Cancel(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a, ok := e.armed[id]; ok {
		a.timer.Stop()
		delete(e.armed, id)
	}
	return nil
}

// CancelAll disarms every trigger.
func (e *TimerEngine) CancelAll(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, a := range e.armed {
		a.timer.Stop()
		delete(e.armed, id)
	}
	return nil
}

// ListTriggers returns the armed triggers ordered by fire time.
func (e *TimerEngine) ListTriggers(context.Context) ([]Trigger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Trigger, 0, len(e.armed))
	for _, a := range e.armed {
		out = append(out, a.trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// fire delivers a due trigger and re-arms it if it repeats daily.
func (e *TimerEngine) fire(id string) {
	e.mu.Lock()
	a, ok := e.armed[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	t := a.trigger
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.config.DeliveryTimeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		e.logger.Error().Err(err).Str("trigger_id", id).Msg("rate limiter wait aborted")
		metrics.IncNotificationSent("dropped")
		return
	}

	err := e.notifier.Notify(ctx, Notification{ID: t.ID, Title: t.Title, Body: t.Body})
	if err != nil {
		e.logger.Error().Err(err).Str("trigger_id", id).Msg("notification delivery failed")
		metrics.IncNotificationSent("error")
	} else {
		metrics.IncNotificationSent("ok")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The trigger may have been cancelled or replaced while delivering.
	current, ok := e.armed[id]
	if !ok || current != a {
		return
	}

	if !t.RepeatDaily {
		delete(e.armed, id)
		return
	}

	next := t.FireAt.AddDate(0, 0, 1)
	current.trigger.FireAt = next
	current.timer = time.AfterFunc(time.Until(next), func() { e.fire(id) })
}
