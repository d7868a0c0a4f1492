package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus()
	var seen []EventType
	bus.SubscribeAll(func(e *Event) {
		seen = append(seen, e.Type)
	})

	bus.Publish(&Event{Type: EventTestStarted})
	bus.Publish(&Event{Type: EventTranscriptUpdate})
	bus.Publish(&Event{Type: EventTestCompleted})

	assert.Equal(t, []EventType{EventTestStarted, EventTranscriptUpdate, EventTestCompleted}, seen)
}

func TestBus_TypedSubscriptionFiltersOtherTypes(t *testing.T) {
	bus := NewBus()
	var retries, all int
	bus.Subscribe(EventRetryError, func(*Event) { retries++ })
	bus.SubscribeAll(func(*Event) { all++ })

	bus.Publish(&Event{Type: EventRetryError})
	bus.Publish(&Event{Type: EventTestCompleted})

	assert.Equal(t, 1, retries)
	assert.Equal(t, 2, all)
}

func TestBus_PanickingListenerDoesNotAbortDelivery(t *testing.T) {
	bus := NewBus()
	var delivered bool
	bus.Subscribe(EventTestStarted, func(*Event) { panic("bad listener") })
	bus.Subscribe(EventTestStarted, func(*Event) { delivered = true })

	require.NotPanics(t, func() {
		bus.Publish(&Event{Type: EventTestStarted})
	})
	assert.True(t, delivered)
}

func TestBus_StampsTimestamp(t *testing.T) {
	bus := NewBus()
	var got *Event
	bus.SubscribeAll(func(e *Event) { got = e })

	bus.Publish(&Event{Type: EventRunCompleted})
	require.NotNil(t, got)
	assert.False(t, got.Timestamp.IsZero())
}

func TestEmitter_NilSafety(t *testing.T) {
	assert.Nil(t, NewEmitter(nil, "run", "result"))

	var e *Emitter
	assert.NotPanics(t, func() {
		e.Emit(EventTestStarted, nil)
	})
}

func TestEmitter_BindsRunAndResult(t *testing.T) {
	bus := NewBus()
	var got *Event
	bus.SubscribeAll(func(e *Event) { got = e })

	NewEmitter(bus, "run-1", "result-7").Emit(EventTestStarted, "payload")
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "result-7", got.ResultID)
	assert.Equal(t, "payload", got.Data)
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.SubscribeAll(func(*Event) { calls++ })
	bus.Clear()

	bus.Publish(&Event{Type: EventTestStarted})
	assert.Zero(t, calls)
}
