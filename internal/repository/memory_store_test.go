package repository

import (
	"context"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func seedUser(t *testing.T, users UserRepository, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:  username,
		Email:     username + "@x.com",
		FirstName: "First",
		LastName:  username,
		Role:      domain.UserRoleUser,
		Enabled:   true,
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func seedTask(t *testing.T, tasks TaskRepository, owner, title string, mutate func(*domain.Task)) *domain.Task {
	t.Helper()
	task := &domain.Task{
		OwnerID:   owner,
		Title:     title,
		Status:    domain.TaskStatusPending,
		Priority:  domain.TaskPriorityMedium,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, tasks.Create(context.Background(), task))
	return task
}

func TestMemoryStore_UserUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()

	bob := seedUser(t, users, "bob")
	require.NotEmpty(t, bob.ID)

	err := users.Create(ctx, &domain.User{Username: "bob", Email: "other@x.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	err = users.Create(ctx, &domain.User{Username: "robert", Email: "bob@x.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	alice := seedUser(t, users, "alice")
	_, err = users.UpdateFunc(ctx, alice.ID, func(u *domain.User) error {
		u.Username = "bob"
		return nil
	})
	assert.True(t, apperrors.IsConflict(err))

	stored, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username, "failed update must not be applied")

	renamed, err := users.UpdateFunc(ctx, alice.ID, func(u *domain.User) error {
		u.Username = "alicia"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Username)

	ok, err := users.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "old username is released")
	_, err = users.GetByUsername(ctx, "alicia")
	assert.NoError(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store.Users(), "carol")
	task := seedTask(t, store.Tasks(), owner.ID, "copy", func(tk *domain.Task) {
		tk.DueDate = ptr(base.Add(time.Hour))
	})

	fetched, err := store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	fetched.Title = "mutated"
	*fetched.DueDate = base

	again, err := store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "copy", again.Title)
	assert.Equal(t, base.Add(time.Hour), *again.DueDate)
}

func TestMemoryStore_TaskOwnerMustExist(t *testing.T) {
	store := NewMemoryStore()
	err := store.Tasks().Create(context.Background(), &domain.Task{OwnerID: "missing", Title: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryStore_DeleteUserWithTasksBlocked(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store.Users(), "dave")
	task := seedTask(t, store.Tasks(), owner.ID, "blocker", nil)

	err := store.Users().Delete(ctx, owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, store.Tasks().Delete(ctx, task.ID))
	require.NoError(t, store.Users().Delete(ctx, owner.ID))

	err = store.Users().Delete(ctx, owner.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryStore_TaskFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tasks := store.Tasks()
	erin := seedUser(t, store.Users(), "erin")
	frank := seedUser(t, store.Users(), "frank")

	seedTask(t, tasks, erin.ID, "Write Report", func(tk *domain.Task) {
		tk.Description = "quarterly numbers"
		tk.Priority = domain.TaskPriorityHigh
		tk.DueDate = ptr(base.Add(48 * time.Hour))
	})
	seedTask(t, tasks, erin.ID, "Review PR", func(tk *domain.Task) {
		tk.Status = domain.TaskStatusCompleted
		tk.CompletedAt = ptr(base)
		tk.CreatedAt = base.Add(time.Hour)
		tk.DueDate = ptr(base.Add(24 * time.Hour))
	})
	seedTask(t, tasks, frank.ID, "Deploy", func(tk *domain.Task) {
		tk.Description = "ship the REPORT service"
		tk.Priority = domain.TaskPriorityUrgent
		tk.CreatedAt = base.Add(2 * time.Hour)
	})

	tests := []struct {
		name   string
		filter TaskFilter
		want   []string
	}{
		{"all in creation order", TaskFilter{}, []string{"Write Report", "Review PR", "Deploy"}},
		{"owner", TaskFilter{OwnerID: &erin.ID}, []string{"Write Report", "Review PR"}},
		{"status", TaskFilter{Statuses: []domain.TaskStatus{domain.TaskStatusCompleted}}, []string{"Review PR"}},
		{"exclude status", TaskFilter{ExcludeStatuses: []domain.TaskStatus{domain.TaskStatusCompleted}}, []string{"Write Report", "Deploy"}},
		{"priority", TaskFilter{Priorities: []domain.TaskPriority{domain.TaskPriorityUrgent}}, []string{"Deploy"}},
		{"title case-insensitive", TaskFilter{TitleContains: ptr("report")}, []string{"Write Report"}},
		{"description", TaskFilter{DescriptionContains: ptr("report")}, []string{"Deploy"}},
		{"search title or description", TaskFilter{SearchTerm: ptr("REPORT")}, []string{"Write Report", "Deploy"}},
		{"like metacharacters are literal", TaskFilter{TitleContains: ptr("%")}, []string{}},
		{"created inclusive", TaskFilter{CreatedFrom: ptr(base), CreatedTo: ptr(base.Add(time.Hour))}, []string{"Write Report", "Review PR"}},
		{"inverted created range", TaskFilter{CreatedFrom: ptr(base.Add(time.Hour)), CreatedTo: ptr(base)}, []string{}},
		{"due inclusive skips undated", TaskFilter{DueFrom: ptr(base), DueTo: ptr(base.Add(48 * time.Hour))}, []string{"Write Report", "Review PR"}},
		{"due exclusive bounds", TaskFilter{DueAfter: ptr(base.Add(24 * time.Hour)), DueBefore: ptr(base.Add(72 * time.Hour))}, []string{"Write Report"}},
		{"created desc", TaskFilter{Order: TaskOrderCreatedDesc}, []string{"Deploy", "Review PR", "Write Report"}},
		{"due asc nulls last", TaskFilter{Order: TaskOrderDueAsc}, []string{"Review PR", "Write Report", "Deploy"}},
		{"priority desc", TaskFilter{Order: TaskOrderPriorityDesc}, []string{"Deploy", "Write Report", "Review PR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tasks.List(ctx, tt.filter)
			require.NoError(t, err)
			titles := make([]string, 0, len(got))
			for _, task := range got {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.want, titles)

			count, err := tasks.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), count)
		})
	}

	byStatus, err := tasks.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TaskStatus]int64{
		domain.TaskStatusPending:   2,
		domain.TaskStatusCompleted: 1,
	}, byStatus)

	byPriority, err := tasks.CountByPriority(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byPriority[domain.TaskPriorityHigh])
	assert.NotContains(t, byPriority, domain.TaskPriorityLow)
}

func TestMemoryStore_UserFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()

	gina := seedUser(t, users, "gina")
	hank := seedUser(t, users, "hank")
	_, err := users.UpdateFunc(ctx, hank.ID, func(u *domain.User) error {
		u.Role = domain.UserRoleAdmin
		u.Enabled = false
		u.FirstName = "Henry"
		return nil
	})
	require.NoError(t, err)
	seedTask(t, store.Tasks(), gina.ID, "one", nil)

	names := func(filter UserFilter) []string {
		list, err := users.List(ctx, filter)
		require.NoError(t, err)
		out := []string{}
		for _, u := range list {
			out = append(out, u.Username)
		}
		return out
	}

	assert.Equal(t, []string{"hank"}, names(UserFilter{Role: ptr(domain.UserRoleAdmin)}))
	assert.Equal(t, []string{"gina"}, names(UserFilter{Enabled: ptr(true)}))
	assert.Equal(t, []string{"hank"}, names(UserFilter{SearchTerm: ptr("henry HANK")}))
	assert.Equal(t, []string{"gina"}, names(UserFilter{SearchTerm: ptr("GINA@X")}))
	assert.Equal(t, []string{"gina"}, names(UserFilter{HasTasks: ptr(true)}))
	assert.Equal(t, []string{"hank"}, names(UserFilter{HasTasks: ptr(false)}))

	roles, err := users.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.UserRole]int64{domain.UserRoleUser: 1, domain.UserRoleAdmin: 1}, roles)
}

func TestMemoryStore_UpdateFuncErrorLeavesRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store.Users(), "ivan")
	task := seedTask(t, store.Tasks(), owner.ID, "keep", nil)

	_, err := store.Tasks().UpdateFunc(ctx, task.ID, func(tk *domain.Task) error {
		tk.Title = "changed"
		return apperrors.NewValidationError("title", "rejected")
	})
	require.Error(t, err)

	stored, err := store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", stored.Title)

	_, err = store.Tasks().UpdateFunc(ctx, "missing", func(*domain.Task) error { return nil })
	assert.True(t, apperrors.IsNotFound(err))
}

// aliasedID returns a string sharing memory with the returned buffer, the way
// fiber hands out route params.
func aliasedID(id string) (string, []byte) {
	buf := []byte(id)
	return unsafe.String(&buf[0], len(buf)), buf
}

func scribble(buf []byte) {
	for i := range buf {
		buf[i] = 'x'
	}
}

func TestMemoryStore_UpdateFuncDoesNotRetainCallerID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store.Users(), "judy")
	task := seedTask(t, store.Tasks(), owner.ID, "aliased", nil)

	taskID, taskBuf := aliasedID(task.ID)
	_, err := store.Tasks().UpdateFunc(ctx, taskID, func(tk *domain.Task) error {
		tk.Status = domain.TaskStatusInProgress
		return nil
	})
	require.NoError(t, err)

	userID, userBuf := aliasedID(owner.ID)
	_, err = store.Users().UpdateFunc(ctx, userID, func(u *domain.User) error {
		u.Enabled = false
		return nil
	})
	require.NoError(t, err)

	scribble(taskBuf)
	scribble(userBuf)

	stored, err := store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, stored.Status)

	listed, err := store.Tasks().List(ctx, TaskFilter{OwnerID: &owner.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, task.ID, listed[0].ID)

	byName, err := store.Users().GetByUsername(ctx, "judy")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, byName.ID)
	assert.False(t, byName.Enabled)

	byEmail, err := store.Users().GetByEmail(ctx, "judy@x.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, byEmail.ID)
}

func TestMemoryStore_ConcurrentUpdatesKeepEveryChange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := seedUser(t, store.Users(), "kate")
	task := seedTask(t, store.Tasks(), owner.ID, "contended", nil)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Tasks().UpdateFunc(ctx, task.ID, func(tk *domain.Task) error {
				tk.Description += "d"
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := store.Tasks().UpdateFunc(ctx, task.ID, func(tk *domain.Task) error {
				tk.Title += "t"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Description, writers)
	assert.Len(t, stored.Title, len("contended")+writers)
}
