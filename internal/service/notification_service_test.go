package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/task-manager/internal/events"
)

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestNotificationService_ForwardsEveryEventType(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingPublisher{}
	NewNotificationService(dispatcher, sink, zap.New(core)).RegisterHandlers()

	for _, eventType := range events.AllEventTypes {
		require.NoError(t, dispatcher.Publish(context.Background(),
			events.NewEvent(eventType, events.SubjectTask, "id-1", time.Now(), nil)))
	}

	require.Len(t, sink.events, len(events.AllEventTypes))
	assert.Equal(t, len(events.AllEventTypes), logs.FilterField(zap.String("subject_id", "id-1")).Len())
}

func TestNotificationService_PublisherFailureDoesNotFailWrite(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, &recordingPublisher{err: errors.New("redis down")}, zap.New(core)).RegisterHandlers()

	f := newFixture(t)
	tasks := NewTaskService(TaskDependencies{
		TaskRepo:   f.store.Tasks(),
		UserRepo:   f.store.Users(),
		Dispatcher: dispatcher,
		Logger:     zap.New(core),
	})
	owner := f.user(t, "alice")

	task, err := tasks.Create(context.Background(), owner.ID, TaskInput{Title: "still stored"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 1, logs.FilterMessage("event forward failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("event dispatch failed").Len())
}

func TestNotificationService_NilPublisherOnlyLogs(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, zap.NewNop()).RegisterHandlers()
	assert.NoError(t, dispatcher.Publish(context.Background(),
		events.NewEvent(events.EventUserDeleted, events.SubjectUser, "u1", time.Now(), nil)))
}
