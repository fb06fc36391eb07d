package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesEveryKey(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("user-1", AdminChannel)
	defer cleanup()

	hub.Publish("user-1", Event{Event: EventTimesheetApproved, Data: 1})
	hub.Publish(AdminChannel, Event{Event: EventTimesheetSubmitted, Data: 2})
	hub.Publish("user-2", Event{Event: EventTimesheetRejected})

	first := <-ch
	second := <-ch
	assert.Equal(t, EventTimesheetApproved, first.Event)
	assert.Equal(t, EventTimesheetSubmitted, second.Event)
	assert.Empty(t, ch)
	assert.Equal(t, 1, hub.TotalSubscribers())
	assert.Equal(t, 1, hub.SubscriberCount(AdminChannel))
}

func TestHub_CleanupIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("user-1")

	cleanup()
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())
	assert.Equal(t, 0, hub.SubscriberCount("user-1"))

	// no subscribers left, must not panic
	hub.Publish("user-1", Event{Event: EventTimesheetApproved})
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("user-1")
	defer cleanup()

	for i := 0; i < 20; i++ {
		hub.Publish("user-1", Event{Event: EventPendingReminder, Data: i})
	}
	assert.Len(t, ch, 10)
}

func TestEvent_Encode(t *testing.T) {
	frame, err := Event{Event: EventTimesheetApproved, Data: map[string]int{"id": 7}}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "event: timesheet.approved\ndata: {\"id\":7}\n\n", string(frame))
}

func TestHub_CloseEndsStreams(t *testing.T) {
	hub := NewHub()
	first, cleanupFirst := hub.Subscribe("user-1", AdminChannel)
	second, _ := hub.Subscribe("user-2")

	hub.Close()

	_, open := <-first
	assert.False(t, open)
	_, open = <-second
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())
	assert.Equal(t, 0, hub.SubscriberCount(AdminChannel))

	// a stream's own cleanup after Close must not panic
	cleanupFirst()

	late, cleanupLate := hub.Subscribe("user-3")
	defer cleanupLate()
	_, open = <-late
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())

	hub.Publish("user-1", Event{Event: EventTimesheetApproved})
}
