package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(TypeIntakeLogged, func(e Event) error {
		got = append(got, e)
		return nil
	})

	bus.Publish(Event{Type: TypeIntakeLogged, Payload: map[string]any{"amount_ml": 250}})
	bus.Publish(Event{Type: TypeGoalChanged})

	assert.Len(t, got, 1, "only the subscribed type is delivered")
	assert.Equal(t, 250, got[0].Payload["amount_ml"])
	assert.False(t, got[0].CreatedAt.IsZero(), "publish stamps the event")
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus()

	var secondRan bool
	bus.Subscribe(TypeIntakeDeleted, func(Event) error { return errors.New("boom") })
	bus.Subscribe(TypeIntakeDeleted, func(Event) error {
		secondRan = true
		return nil
	})

	bus.Publish(Event{Type: TypeIntakeDeleted})
	assert.True(t, secondRan)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: TypeRemindersChanged})
	})
}
