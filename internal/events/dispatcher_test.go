package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventTaskCreated, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventTaskCreated, SubjectTask, "t1", time.Now(), nil)))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventTaskDeleted, SubjectTask, "t1", time.Now(), nil)))

	assert.Equal(t, []EventType{EventTaskCreated}, got)
}

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserCreated, SubjectUser, "u1", time.Now(), nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestNewEvent_AssignsDistinctIDs(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewEvent(EventTaskUpdated, SubjectTask, "t1", at, nil)
	b := NewEvent(EventTaskUpdated, SubjectTask, "t1", at, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, at, a.Timestamp)
	assert.Equal(t, SubjectTask, a.Subject)
}
