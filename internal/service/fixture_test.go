package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-manager/internal/auth"
	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/events"
	"github.com/spec-kit/task-manager/internal/repository"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	mu  sync.Mutex
	now time.Time

	store   *repository.MemoryStore
	users   *UserService
	tasks   *TaskService
	queries *QueryService
	stats   *StatisticsService
	tokens  *auth.TokenManager

	published []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: base, store: repository.NewMemoryStore()}
	clock := Clock(func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	})

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return nil
		})
	}

	f.tokens = auth.NewTokenManager("test-secret", 5)
	f.users = NewUserService(UserDependencies{
		UserRepo:     f.store.Users(),
		TaskRepo:     f.store.Tasks(),
		Hasher:       auth.NewBcryptHasher(4),
		TokenManager: f.tokens,
		Dispatcher:   dispatcher,
		Clock:        clock,
	})
	f.tasks = NewTaskService(TaskDependencies{
		TaskRepo:   f.store.Tasks(),
		UserRepo:   f.store.Users(),
		Dispatcher: dispatcher,
		Clock:      clock,
	})
	f.queries = NewQueryService(QueryDependencies{
		TaskRepo: f.store.Tasks(),
		UserRepo: f.store.Users(),
		Clock:    clock,
	})
	f.stats = NewStatisticsService(StatisticsDependencies{
		TaskRepo: f.store.Tasks(),
		UserRepo: f.store.Users(),
		Clock:    clock,
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}

func (f *fixture) user(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), CreateUserInput{
		Username:  username,
		Email:     username + "@x.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  username,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) task(t *testing.T, ownerID string, input TaskInput) *domain.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), ownerID, input)
	require.NoError(t, err)
	return task
}

// requireCompletionInvariant checks that completedAt is set iff the task is COMPLETED.
func requireCompletionInvariant(t *testing.T, task *domain.Task) {
	t.Helper()
	require.Equal(t, task.Status == domain.TaskStatusCompleted, task.CompletedAt != nil,
		"status %s with completedAt %v", task.Status, task.CompletedAt)
}

func ptr[T any](v T) *T { return &v }

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func usernames(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, user := range users {
		out = append(out, user.Username)
	}
	return out
}
