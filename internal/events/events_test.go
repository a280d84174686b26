package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var booked, cancelled []Event
	bus.Subscribe(TypeSessionBooked, func(e Event) { booked = append(booked, e) })
	bus.Subscribe(TypeSessionBooked, func(e Event) { booked = append(booked, e) })
	bus.Subscribe(TypeSessionCancelled, func(e Event) { cancelled = append(cancelled, e) })

	bus.Publish(Event{Type: TypeSessionBooked, SessionID: "session-1"})

	assert.Len(t, booked, 2)
	assert.Empty(t, cancelled)
	assert.Equal(t, "session-1", booked[0].SessionID)
	assert.False(t, booked[0].CreatedAt.IsZero())
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: TypeSessionVerified, SessionID: "session-1"})
	})
}
