package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_Publish(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []string
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.UserID)
		return errors.New("sink down")
	})
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		got = append(got, "failed")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserRegistered, UserID: "u1"})

	assert.EqualError(t, err, "user_registered: sink down")
	assert.Equal(t, []string{"first:u1", "second:u1"}, got)
}

func TestInMemoryDispatcher_StampsEvents(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	d := NewInMemoryDispatcher(
		WithEventClock(func() time.Time { return at }),
		WithEventIDs(func() string { return "evt-1" }),
	)

	var seen []Event
	d.Subscribe(AnyEvent, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserLoggedIn, UserID: "u1"}))
	preset := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.Publish(context.Background(), Event{ID: "keep", Type: EventLoginFailed, Timestamp: preset}))

	require.Len(t, seen, 2)
	assert.Equal(t, "evt-1", seen[0].ID)
	assert.True(t, seen[0].Timestamp.Equal(at))
	assert.Equal(t, time.UTC, seen[0].Timestamp.Location())
	assert.Equal(t, "keep", seen[1].ID)
	assert.True(t, seen[1].Timestamp.Equal(preset))
}

func TestInMemoryDispatcher_AnyEventRunsAfterTyped(t *testing.T) {
	d := NewInMemoryDispatcher()

	var order []string
	d.Subscribe(AnyEvent, func(context.Context, Event) error {
		order = append(order, "any")
		return nil
	})
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		order = append(order, "typed")
		return nil
	})
	d.Subscribe(EventUserRegistered, nil)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserRegistered}))
	assert.Equal(t, []string{"typed", "any"}, order)
}

func TestInMemoryDispatcher_RejectsInvalidType(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.Error(t, d.Publish(context.Background(), Event{}))
	assert.Error(t, d.Publish(context.Background(), Event{Type: AnyEvent}))
}

func TestInMemoryDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserLoggedIn}))
}
