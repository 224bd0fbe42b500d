package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

func TestStatisticsService_UserSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")

	f.task(t, owner.ID, TaskInput{Title: "one"})
	f.task(t, owner.ID, TaskInput{Title: "two"})
	f.task(t, owner.ID, TaskInput{Title: "three", Status: domain.TaskStatusCompleted})

	summary, err := f.stats.UserSummary(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskSummary{Total: 3, Completed: 1, Pending: 2, InProgress: 0, Overdue: 0}, *summary)
}

func TestStatisticsService_SummaryCountsCancelledInTotalOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "bob")
	past := base.Add(-time.Hour)

	f.task(t, owner.ID, TaskInput{Title: "cancelled", Status: domain.TaskStatusCancelled, DueDate: &past})
	f.task(t, owner.ID, TaskInput{Title: "working", Status: domain.TaskStatusInProgress, DueDate: &past})
	f.task(t, owner.ID, TaskInput{Title: "done late", Status: domain.TaskStatusCompleted, DueDate: &past})

	summary, err := f.stats.UserSummary(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(1), summary.Completed)
	assert.Equal(t, int64(0), summary.Pending)
	assert.Equal(t, int64(1), summary.InProgress)
	assert.Equal(t, int64(2), summary.Overdue)
	assert.Less(t, summary.Completed+summary.Pending+summary.InProgress, summary.Total)

	_, err = f.stats.UserSummary(ctx, "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStatisticsService_GroupedCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	carol := f.user(t, "carol")
	dave := f.user(t, "dave")
	_, err := f.users.Update(ctx, dave.ID, UpdateUserInput{Username: "dave", Email: "dave@x.com", Role: domain.UserRoleAdmin})
	require.NoError(t, err)

	f.task(t, carol.ID, TaskInput{Title: "a", Priority: domain.TaskPriorityHigh})
	f.task(t, carol.ID, TaskInput{Title: "b", Status: domain.TaskStatusCompleted})
	f.task(t, dave.ID, TaskInput{Title: "c", Status: domain.TaskStatusCancelled})
	f.task(t, dave.ID, TaskInput{Title: "d", Priority: domain.TaskPriorityHigh})

	byStatus, err := f.stats.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TaskStatus]int64{
		domain.TaskStatusPending:   2,
		domain.TaskStatusCompleted: 1,
		domain.TaskStatusCancelled: 1,
	}, byStatus)
	assert.NotContains(t, byStatus, domain.TaskStatusInProgress)

	var sum int64
	for _, n := range byStatus {
		sum += n
	}
	all, err := f.queries.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(all)), sum)

	byPriority, err := f.stats.CountByPriority(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TaskPriority]int64{
		domain.TaskPriorityHigh:   2,
		domain.TaskPriorityMedium: 2,
	}, byPriority)

	byRole, err := f.stats.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.UserRole]int64{domain.UserRoleUser: 1, domain.UserRoleAdmin: 1}, byRole)

	admins, err := f.stats.CountUsersWithRole(ctx, domain.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)

	pending, err := f.stats.CountTasksWithStatus(ctx, domain.TaskStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	_, err = f.stats.CountTasksWithStatus(ctx, "DONE")
	assert.True(t, apperrors.IsValidation(err))
}

func TestStatisticsService_OwnerCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "erin")
	f.task(t, owner.ID, TaskInput{Title: "a"})
	f.task(t, owner.ID, TaskInput{Title: "b", Status: domain.TaskStatusCompleted})

	total, err := f.stats.CountByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	completed, err := f.stats.CountCompletedByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)

	_, err = f.stats.CountByOwner(ctx, "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}
